// Package chat implements the customer-support chat proxy: it turns a client
// transcript into a model conversation and relays the streamed reply.
package chat

import (
	"context"
	"errors"
	"iter"
)

// ErrInvalidMessages reports a missing, non-array or empty messages field.
// Its text is the exact body returned to clients with HTTP 400.
var ErrInvalidMessages = errors.New("Invalid or empty messages array") //nolint:staticcheck // client-facing text

// ErrMalformedBody reports a request body that cannot be parsed at all.
// Handlers treat it as a server-side failure, not a validation error.
var ErrMalformedBody = errors.New("malformed request body")

// Role identifies who produced a Turn.
type Role string

const (
	// RoleUser marks a turn typed by the customer.
	RoleUser Role = "user"
	// RoleAssistant marks a turn produced by the model.
	RoleAssistant Role = "assistant"
)

// ParseRole maps a wire role onto Role. Only "user" is a user turn; every
// other value, including unknown ones, is coerced to RoleAssistant.
func ParseRole(s string) Role {
	if s == string(RoleUser) {
		return RoleUser
	}
	return RoleAssistant
}

// Turn is one message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the outbound shape handed to a Model: prior context plus
// the prompt that opens the new reply.
type Conversation struct {
	History []Turn
	Prompt  string
}

// GenerationConfig holds the sampling parameters sent with every call.
type GenerationConfig struct {
	MaxOutputTokens int32
	Temperature     float32
	TopP            float32
	TopK            float32
}

// DefaultGenerationConfig is the fixed configuration used for support replies.
var DefaultGenerationConfig = GenerationConfig{
	MaxOutputTokens: 1000,
	Temperature:     0.7,
	TopP:            1,
	TopK:            1,
}

// Model opens a streaming chat session against a generative model.
//
// The returned sequence is lazy and single-pass: fragments arrive in order and
// concatenate to the full reply. An error ends the sequence.
type Model interface {
	Stream(ctx context.Context, conv Conversation, cfg GenerationConfig) iter.Seq2[string, error]
}
