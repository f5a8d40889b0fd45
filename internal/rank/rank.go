package rank

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ngl-strategy/rim-assistant/internal/model"
)

// ByRecency reorders candidates newest-first by their resolved document
// date. Candidates with no resolvable date keep their relative order at the
// tail. The sort is stable, so candidates sharing a date stay in retriever
// order. The input slice is not modified and no candidate is dropped or
// mutated; the result is a fresh permutation.
func ByRecency(cands []model.Candidate) []model.Candidate {
	if len(cands) <= 1 {
		return append([]model.Candidate(nil), cands...)
	}

	type dated struct {
		cand model.Candidate
		date time.Time
	}

	resolved := make([]dated, len(cands))
	for i, c := range cands {
		// Resolution failures degrade to the zero date; they never
		// abort the ranking.
		d, _ := ResolveDate(c)
		resolved[i] = dated{cand: c, date: d}
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].date.After(resolved[j].date)
	})

	out := make([]model.Candidate, len(resolved))
	for i, r := range resolved {
		out[i] = r.cand
		zap.L().Debug("recency rank",
			zap.Int("position", i),
			zap.String("source", r.cand.SourceName),
			zap.Time("resolved_date", r.date))
	}
	return out
}
