package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"user", RoleUser},
		{"assistant", RoleAssistant},
		{"model", RoleAssistant},
		{"system", RoleAssistant},
		{"", RoleAssistant},
		{"User", RoleAssistant},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRole(tt.in))
		})
	}
}

func TestDecodeTurnsRejectsInvalidBodies(t *testing.T) {
	tests := map[string]string{
		"empty array":     `{"messages":[]}`,
		"not an array":    `{"messages":"not-an-array"}`,
		"object":          `{"messages":{"role":"user"}}`,
		"null":            `{"messages":null}`,
		"missing":         `{}`,
		"null entry":      `{"messages":[null]}`,
		"number entries":  `{"messages":[1,2]}`,
		"missing content": `{"messages":[{"role":"user"}]}`,
		"numeric content": `{"messages":[{"role":"user","content":42}]}`,
		"one bad entry":   `{"messages":[{"role":"user","content":"ok"},"oops"]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			turns, err := DecodeTurns([]byte(body))
			require.ErrorIs(t, err, ErrInvalidMessages)
			assert.Nil(t, turns)
		})
	}
}

func TestDecodeTurnsMalformedBody(t *testing.T) {
	tests := map[string]string{
		"not json":       `messages=hello`,
		"empty body":     ``,
		"truncated json": `{"messages":[{"role":"user"`,
		"null":           `null`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			turns, err := DecodeTurns([]byte(body))
			require.ErrorIs(t, err, ErrMalformedBody)
			assert.NotErrorIs(t, err, ErrInvalidMessages)
			assert.Nil(t, turns)
		})
	}
}

func TestDecodeTurnsCoercesRoles(t *testing.T) {
	turns, err := DecodeTurns([]byte(`{"messages":[
		{"role":"user","content":"Hi"},
		{"role":"assistant","content":"Hello"},
		{"role":"tool","content":"odd"}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "Hello"},
		{Role: RoleAssistant, Content: "odd"},
	}, turns)
}

func TestBuildConversationSingleTurn(t *testing.T) {
	conv, err := BuildConversation([]Turn{{Role: RoleUser, Content: "Hello"}})
	require.NoError(t, err)

	assert.Equal(t, []Turn{{Role: RoleUser, Content: SystemInstruction}}, conv.History)
	assert.Equal(t, "Hello", conv.Prompt)
}

func TestBuildConversationThreeTurns(t *testing.T) {
	conv, err := BuildConversation([]Turn{
		{Role: RoleUser, Content: "My app crashes"},
		{Role: RoleAssistant, Content: "Which version?"},
		{Role: RoleUser, Content: "2.3.1"},
	})
	require.NoError(t, err)

	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: SystemInstruction},
		{Role: RoleUser, Content: "My app crashes"},
		{Role: RoleAssistant, Content: "Which version?"},
	}, conv.History)
	assert.Equal(t, "2.3.1", conv.Prompt)
}

func TestBuildConversationSystemInstructionAlwaysFirst(t *testing.T) {
	for n := 1; n <= 12; n++ {
		turns := make([]Turn, n)
		for i := range turns {
			turns[i] = Turn{Role: Role([]string{"user", "assistant"}[i%2]), Content: "x"}
		}
		conv, err := BuildConversation(turns)
		require.NoError(t, err)
		require.Len(t, conv.History, n)
		assert.Equal(t, SystemInstruction, conv.History[0].Content)
		assert.Equal(t, RoleUser, conv.History[0].Role)
	}
}

func TestBuildConversationRejectsEmpty(t *testing.T) {
	_, err := BuildConversation(nil)
	require.ErrorIs(t, err, ErrInvalidMessages)
}
