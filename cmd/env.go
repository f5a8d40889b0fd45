package main

import (
	"github.com/ngl-strategy/rim-assistant/internal/engine"
	"github.com/ngl-strategy/rim-assistant/internal/normalize"
	"github.com/ngl-strategy/rim-assistant/internal/resilience"
	"github.com/ngl-strategy/rim-assistant/internal/synth"
	"github.com/ngl-strategy/rim-assistant/pkg/llamacloud"
)

// engineCache holds the process-wide engine so expensive service handles are
// built once. Commands that mutate the document set invalidate it.
var engineCache = engine.NewCache()

func newLlamaCloud() llamacloud.Client {
	opts := []llamacloud.Option{
		llamacloud.WithRetry(resilience.FromRetryConfig(
			cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs,
			cfg.Retry.Multiplier, cfg.Retry.JitterFraction)),
		llamacloud.WithPipelineName(cfg.LlamaCloud.IndexName, cfg.LlamaCloud.ProjectName),
	}
	if cfg.LlamaCloud.BaseURL != "" {
		opts = append(opts, llamacloud.WithBaseURL(cfg.LlamaCloud.BaseURL))
	}
	if cfg.LlamaCloud.RateRPS > 0 {
		opts = append(opts, llamacloud.WithRateLimit(cfg.LlamaCloud.RateRPS, cfg.LlamaCloud.RateBurst))
	}
	return llamacloud.NewClient(cfg.LlamaCloud.Key, cfg.LlamaCloud.PipelineID, opts...)
}

func newCleaner() *normalize.Cleaner {
	return normalize.New(normalize.Options{MinRun: cfg.Normalize.MinRun})
}

// buildEngine assembles retriever, synthesizer, and cleaner from config.
func buildEngine() (*engine.Engine, error) {
	synthesizer, err := synth.New(cfg)
	if err != nil {
		return nil, err
	}
	retriever := engine.NewLlamaCloudRetriever(newLlamaCloud())
	return engine.New(retriever, synthesizer, newCleaner()), nil
}

func getEngine() (*engine.Engine, error) {
	return engineCache.GetOrCreate(buildEngine)
}
