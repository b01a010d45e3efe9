package chat

import (
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
)

// SystemInstruction primes the model before the customer's transcript.
const SystemInstruction = `You are an AI-powered customer support assistant for a software company.
Your role is to provide helpful, friendly, and accurate responses to customer inquiries.
You should always maintain a professional tone and prioritize customer satisfaction.
If you're unsure about an answer, it's okay to say you don't know and offer to escalate the issue to a human representative.
Please don't make up information or provide details about internal company processes you're not certain about.`

// DecodeTurns extracts the messages array from a request body.
//
// A body that is not JSON, or is JSON null, yields an error wrapping
// ErrMalformedBody. It returns ErrInvalidMessages when messages is absent or
// not an array, when the array is empty, or when an entry is not an object
// with a string content.
func DecodeTurns(body []byte) ([]Turn, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON body: %w", ErrMalformedBody)
	}
	root := gjson.ParseBytes(body)
	if root.Type == gjson.Null {
		return nil, fmt.Errorf("request body is null: %w", ErrMalformedBody)
	}
	messages := root.Get("messages")
	if !messages.IsArray() {
		return nil, ErrInvalidMessages
	}

	var turns []Turn
	valid := true
	messages.ForEach(func(_, m gjson.Result) bool {
		content := m.Get("content")
		if !m.IsObject() || content.Type != gjson.String {
			valid = false
			return false
		}
		raw := m.Get("role").String()
		role := ParseRole(raw)
		if role == RoleAssistant && raw != string(RoleAssistant) {
			slog.Debug("coercing unknown role to assistant", "role", raw)
		}
		turns = append(turns, Turn{Role: role, Content: content.String()})
		return true
	})
	if !valid || len(turns) == 0 {
		return nil, ErrInvalidMessages
	}
	return turns, nil
}

// BuildConversation prepends the system instruction as a user turn and splits
// the result into prior context and the final prompt.
func BuildConversation(turns []Turn) (Conversation, error) {
	if len(turns) == 0 {
		return Conversation{}, ErrInvalidMessages
	}

	outbound := make([]Turn, 0, len(turns)+1)
	outbound = append(outbound, Turn{Role: RoleUser, Content: SystemInstruction})
	for _, t := range turns {
		outbound = append(outbound, Turn{Role: ParseRole(string(t.Role)), Content: t.Content})
	}

	last := len(outbound) - 1
	return Conversation{
		History: outbound[:last],
		Prompt:  outbound[last].Content,
	}, nil
}
