package contract

import (
	"context"

	"hmo-assistant-be/internal/model"
)

// ChunkScope narrows a search to chunks that are general or match the member's plan.
type ChunkScope struct {
	HMO  string
	Tier string
}

// ScoredChunk wraps CorpusChunk with its similarity score
type ScoredChunk struct {
	Chunk      *model.CorpusChunk
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type CorpusStats struct {
	Chunks  int64            `json:"chunks"`
	Sources int64            `json:"sources"`
	ByHMO   map[string]int64 `json:"by_hmo"`
}

type CorpusRepository interface {
	// SearchSimilarWithScore returns chunks in scope with their similarity scores, filtered by threshold
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, scope ChunkScope, threshold float64) ([]*ScoredChunk, error)
	Stats(ctx context.Context) (*CorpusStats, error)
}
