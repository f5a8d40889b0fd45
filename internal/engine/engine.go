// Package engine composes retrieval, recency ranking, answer synthesis, and
// text cleanup into the single query flow behind every ask.
package engine

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ngl-strategy/rim-assistant/internal/model"
	"github.com/ngl-strategy/rim-assistant/internal/normalize"
	"github.com/ngl-strategy/rim-assistant/internal/rank"
	"github.com/ngl-strategy/rim-assistant/internal/synth"
)

// Retriever fetches candidate passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]model.Candidate, error)
}

// Engine answers questions over the indexed report set.
type Engine struct {
	retriever Retriever
	synth     synth.Synthesizer
	cleaner   *normalize.Cleaner
}

// New creates an Engine. A nil cleaner uses default cleanup options.
func New(retriever Retriever, synthesizer synth.Synthesizer, cleaner *normalize.Cleaner) *Engine {
	if cleaner == nil {
		cleaner = normalize.New(normalize.Options{})
	}
	return &Engine{retriever: retriever, synth: synthesizer, cleaner: cleaner}
}

// Query runs the full flow: retrieve, reorder newest-first, synthesize, and
// clean the answer text. The returned answer carries the ordered sources.
func (e *Engine) Query(ctx context.Context, question string) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, eris.New("engine: question is empty")
	}

	candidates, err := e.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, eris.Wrap(err, "engine: retrieve")
	}
	zap.L().Debug("candidates retrieved", zap.Int("count", len(candidates)))

	ranked := rank.ByRecency(candidates)

	answer, err := e.synth.Synthesize(ctx, question, ranked)
	if err != nil {
		return nil, eris.Wrap(err, "engine: synthesize")
	}

	answer.Text = e.cleaner.Clean(answer.Text)
	return answer, nil
}
