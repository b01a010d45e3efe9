package chat

import (
	"context"
	"iter"

	"github.com/google/uuid"
)

// Service turns client transcripts into model streams.
type Service struct {
	model      Model
	generation GenerationConfig
}

// NewService creates a chat service backed by model, using the default
// generation config.
func NewService(model Model) *Service {
	return &Service{
		model:      model,
		generation: DefaultGenerationConfig,
	}
}

// Reply builds the outbound conversation for turns and opens the reply stream.
// It fails only on invalid input; upstream failures surface through the sequence.
func (s *Service) Reply(ctx context.Context, turns []Turn) (iter.Seq2[string, error], error) {
	conv, err := BuildConversation(turns)
	if err != nil {
		return nil, err
	}
	return s.model.Stream(ctx, conv, s.generation), nil
}

func newStreamID() string {
	return "chat_" + uuid.New().String()[:8]
}
