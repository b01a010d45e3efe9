// Package gemini adapts the Google Gen AI SDK to the chat.Model interface.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/ashureev/supportchat/internal/chat"
	"google.golang.org/genai"
)

// Outbound role names understood by the Gemini API.
const (
	roleUser  = "user"
	roleModel = "model"
)

// Config holds configuration for the Gemini client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client streams chat replies from Gemini.
type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// Ensure Client implements chat.Model.
var _ chat.Model = (*Client)(nil)

// New creates a Gemini client. No network I/O happens until Stream is called.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini client ready", "model", cfg.Model)

	return &Client{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Stream opens a chat session seeded with conv.History and sends conv.Prompt.
// Upstream errors are yielded as-is.
func (c *Client) Stream(ctx context.Context, conv chat.Conversation, cfg chat.GenerationConfig) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		c.logger.Debug("Opening Gemini chat stream", "model", c.model, "history", len(conv.History))
		session, err := c.client.Chats.Create(ctx, c.model, generateContentConfig(cfg), toContents(conv.History))
		if err != nil {
			yield("", err)
			return
		}

		for resp, err := range session.SendMessageStream(ctx, genai.Part{Text: conv.Prompt}) {
			if err != nil {
				yield("", err)
				return
			}
			if resp == nil {
				continue
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}

// toContents maps turns onto Gemini contents, using "model" for assistant turns.
func toContents(turns []chat.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, &genai.Content{
			Role:  outboundRole(t.Role),
			Parts: []*genai.Part{{Text: t.Content}},
		})
	}
	return contents
}

func outboundRole(r chat.Role) string {
	if r == chat.RoleUser {
		return roleUser
	}
	return roleModel
}

func generateContentConfig(cfg chat.GenerationConfig) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     genai.Ptr(cfg.Temperature),
		TopP:            genai.Ptr(cfg.TopP),
		TopK:            genai.Ptr(cfg.TopK),
	}
}
