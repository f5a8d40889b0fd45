package synth

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ngl-strategy/rim-assistant/internal/config"
	"github.com/ngl-strategy/rim-assistant/internal/model"
	"github.com/ngl-strategy/rim-assistant/pkg/anthropic"
)

// AnthropicSynthesizer answers questions via the Anthropic Messages API.
type AnthropicSynthesizer struct {
	client anthropic.Client
	cfg    config.SynthConfig
}

// NewAnthropic creates an AnthropicSynthesizer.
func NewAnthropic(client anthropic.Client, cfg config.SynthConfig) *AnthropicSynthesizer {
	return &AnthropicSynthesizer{client: client, cfg: cfg}
}

func (s *AnthropicSynthesizer) Synthesize(ctx context.Context, question string, sources []model.Candidate) (*model.Answer, error) {
	req := anthropic.MessageRequest{
		System:    systemPrompt,
		MaxTokens: int64(s.cfg.MaxTokens),
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserPrompt(question, sources)},
		},
	}
	if s.cfg.Temperature > 0 {
		t := s.cfg.Temperature
		req.Temperature = &t
	}

	resp, err := s.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "synth: anthropic message")
	}
	if resp.Text == "" {
		return nil, eris.New("synth: anthropic returned an empty answer")
	}
	resp.Usage.LogUsage(resp.Model)

	return &model.Answer{Text: resp.Text, Sources: sources}, nil
}
