package synth

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ngl-strategy/rim-assistant/internal/config"
	"github.com/ngl-strategy/rim-assistant/internal/model"
	"github.com/ngl-strategy/rim-assistant/pkg/ollama"
)

// OllamaSynthesizer answers questions via the Ollama cloud chat API.
type OllamaSynthesizer struct {
	client ollama.Client
	cfg    config.SynthConfig
}

// NewOllama creates an OllamaSynthesizer.
func NewOllama(client ollama.Client, cfg config.SynthConfig) *OllamaSynthesizer {
	return &OllamaSynthesizer{client: client, cfg: cfg}
}

func (s *OllamaSynthesizer) Synthesize(ctx context.Context, question string, sources []model.Candidate) (*model.Answer, error) {
	req := ollama.ChatRequest{
		Messages: []ollama.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(question, sources)},
		},
	}
	if s.cfg.Temperature > 0 || s.cfg.MaxTokens > 0 {
		req.Options = &ollama.Options{}
		if s.cfg.Temperature > 0 {
			t := s.cfg.Temperature
			req.Options.Temperature = &t
		}
		if s.cfg.MaxTokens > 0 {
			n := s.cfg.MaxTokens
			req.Options.NumPredict = &n
		}
	}

	resp, err := s.client.Chat(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "synth: ollama chat")
	}
	if resp.Message.Content == "" {
		return nil, eris.New("synth: ollama returned an empty answer")
	}

	zap.L().Debug("answer synthesized",
		zap.String("provider", "ollama"),
		zap.Int("sources", len(sources)),
		zap.Int("eval_count", resp.EvalCount),
	)

	return &model.Answer{Text: resp.Message.Content, Sources: sources}, nil
}
