// Package synth turns a question and a set of ordered report excerpts into a
// final answer using a hosted LLM.
package synth

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ngl-strategy/rim-assistant/internal/config"
	"github.com/ngl-strategy/rim-assistant/internal/model"
	"github.com/ngl-strategy/rim-assistant/internal/resilience"
	"github.com/ngl-strategy/rim-assistant/pkg/anthropic"
	"github.com/ngl-strategy/rim-assistant/pkg/ollama"
)

// Synthesizer produces an answer from a question and ordered candidate
// passages. Candidates are expected newest-first; the prompt tells the model
// to prefer earlier excerpts on conflict.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, sources []model.Candidate) (*model.Answer, error)
}

// New creates a Synthesizer based on config.
func New(cfg *config.Config) (Synthesizer, error) {
	switch cfg.Synth.Provider {
	case "ollama", "":
		if cfg.Ollama.Key == "" {
			return nil, eris.New("synth: ollama provider requires ollama.key")
		}
		breakerCfg := resilience.FromCircuitConfig(cfg.Retry.FailureThreshold, cfg.Retry.ResetTimeoutSecs)
		breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
			zap.L().Warn("ollama circuit state changed",
				zap.Stringer("from", from), zap.Stringer("to", to))
		}
		opts := []ollama.Option{
			ollama.WithModel(cfg.Ollama.Model),
			ollama.WithRetry(retryFromConfig(cfg.Retry)),
			ollama.WithBreaker(resilience.NewCircuitBreaker(breakerCfg)),
		}
		if cfg.Ollama.BaseURL != "" {
			opts = append(opts, ollama.WithBaseURL(cfg.Ollama.BaseURL))
		}
		return NewOllama(ollama.NewClient(cfg.Ollama.Key, opts...), cfg.Synth), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("synth: anthropic provider requires anthropic.key")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithModel(cfg.Anthropic.Model))
		return NewAnthropic(client, cfg.Synth), nil
	default:
		return nil, eris.Errorf("synth: unknown provider %q", cfg.Synth.Provider)
	}
}

func retryFromConfig(cfg config.RetryConfig) resilience.RetryConfig {
	return resilience.FromRetryConfig(
		cfg.MaxAttempts, cfg.InitialBackoffMs, cfg.MaxBackoffMs,
		cfg.Multiplier, cfg.JitterFraction)
}
