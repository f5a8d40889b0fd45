package engine

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ngl-strategy/rim-assistant/internal/model"
	"github.com/ngl-strategy/rim-assistant/pkg/llamacloud"
)

// LlamaCloudRetriever adapts the LlamaCloud pipeline API to the Retriever
// interface.
type LlamaCloudRetriever struct {
	client llamacloud.Client
}

// NewLlamaCloudRetriever creates a retriever over the given client.
func NewLlamaCloudRetriever(client llamacloud.Client) *LlamaCloudRetriever {
	return &LlamaCloudRetriever{client: client}
}

func (r *LlamaCloudRetriever) Retrieve(ctx context.Context, query string) ([]model.Candidate, error) {
	nodes, err := r.client.Retrieve(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "retrieve from pipeline")
	}

	candidates := make([]model.Candidate, 0, len(nodes))
	for _, n := range nodes {
		candidates = append(candidates, model.Candidate{
			Text:       n.Text,
			SourceName: n.Metadata["file_name"],
			Metadata:   n.Metadata,
			Score:      n.Score,
		})
	}
	return candidates, nil
}
