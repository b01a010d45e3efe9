package main

import (
	"bytes"
	"context"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/supportchat/internal/chat"
	"github.com/ashureev/supportchat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoModel struct{}

func (echoModel) Stream(_ context.Context, conv chat.Conversation, _ chat.GenerationConfig) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, word := range strings.SplitAfter("You said: "+conv.Prompt, " ") {
			if !yield(word, nil) {
				return
			}
		}
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Port:               "8080",
		MaxRequestBodySize: 1 << 20,
		CORSAllowedOrigins: []string{"*"},
		WebSocketEnabled:   true,
		Gemini:             config.GeminiConfig{APIKey: "k", Model: "gemini-test"},
	}
}

func TestRouterServesChatHealthAndPage(t *testing.T) {
	srv := httptest.NewServer(newRouter(testConfig(), echoModel{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/chat", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"Hello"}]}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "You said: Hello", string(body))

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Contains(t, string(page), "Customer Support Chatbot")
}

func TestRouterRejectsEmptyMessages(t *testing.T) {
	srv := httptest.NewServer(newRouter(testConfig(), echoModel{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"messages":[]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid or empty messages array", string(body))
}

func TestRootCmdVersion(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "server dev\n", out.String())
}

func TestRunFailsWithoutAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	err := run(context.Background(), &serverOptions{envFile: t.TempDir() + "/missing.env"})
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
}
