// Package search retrieves knowledge-base passages personalized to a member's plan.
package search

import (
	"context"
	"fmt"
	"sort"

	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/internal/repository/contract"
	"hmo-assistant-be/pkg/embedding"
)

// Personalization is the part of the profile that scopes retrieval.
type Personalization struct {
	HMO  string
	Tier string
}

// Passage is one retrieved piece of the knowledge base.
type Passage struct {
	Text     string  `json:"text"`
	SourceID string  `json:"source_id"`
	Title    string  `json:"title"`
	HMO      string  `json:"hmo,omitempty"`
	Tier     string  `json:"tier,omitempty"`
	Score    float64 `json:"score"`
}

// Retriever returns passages ordered by descending relevance, at most TopK of them.
type Retriever interface {
	Retrieve(ctx context.Context, query string, p Personalization) ([]Passage, error)
}

// Config encapsulates search parameters
type Config struct {
	DBThreshold float64
	TopK        int
	HMOBoost    float64
	TierBoost   float64
}

// DefaultConfig returns default search configuration
func DefaultConfig() Config {
	return Config{
		DBThreshold: 0.0,
		TopK:        5,
		HMOBoost:    0.05,
		TierBoost:   0.05,
	}
}

// Orchestrator handles vector search and candidate ranking
type Orchestrator struct {
	embeddingProvider embedding.EmbeddingProvider
	corpus            contract.CorpusRepository
	config            Config
	logger            logger.ILogger
}

var _ Retriever = (*Orchestrator)(nil)

// NewOrchestrator creates a new search orchestrator
func NewOrchestrator(embeddingProvider embedding.EmbeddingProvider, corpus contract.CorpusRepository, config Config, logger logger.ILogger) *Orchestrator {
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}
	return &Orchestrator{
		embeddingProvider: embeddingProvider,
		corpus:            corpus,
		config:            config,
		logger:            logger,
	}
}

func (o *Orchestrator) Retrieve(ctx context.Context, query string, p Personalization) ([]Passage, error) {
	embeddingRes, err := o.embeddingProvider.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	results, err := o.corpus.SearchSimilarWithScore(
		ctx,
		embeddingRes.Embedding.Values,
		o.config.TopK*2,
		contract.ChunkScope{HMO: p.HMO, Tier: p.Tier},
		o.config.DBThreshold,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	passages := Rank(results, p, o.config)
	o.logger.Debug("SEARCH", "Ranked passages", map[string]interface{}{
		"raw":  len(results),
		"kept": len(passages),
		"hmo":  p.HMO,
		"tier": p.Tier,
	})
	return passages, nil
}

// Rank boosts chunks written for the member's HMO and tier, keeps the best
// chunk per source, and returns at most TopK passages by descending score.
func Rank(results []*contract.ScoredChunk, p Personalization, config Config) []Passage {
	best := make(map[string]Passage, len(results))
	for _, res := range results {
		if res == nil || res.Chunk == nil {
			continue
		}
		c := res.Chunk
		passage := Passage{
			Text:     c.Content,
			SourceID: c.SourceId,
			Title:    c.Title,
			HMO:      deref(c.HMO),
			Tier:     deref(c.Tier),
			Score:    res.Similarity,
		}
		if p.HMO != "" && passage.HMO == p.HMO {
			passage.Score += config.HMOBoost
		}
		if p.Tier != "" && passage.Tier == p.Tier {
			passage.Score += config.TierBoost
		}
		passage.Score = clamp(passage.Score)

		if prev, ok := best[passage.SourceID]; !ok || passage.Score > prev.Score {
			best[passage.SourceID] = passage
		}
	}

	passages := make([]Passage, 0, len(best))
	for _, passage := range best {
		passages = append(passages, passage)
	}
	sort.SliceStable(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		return passages[i].SourceID < passages[j].SourceID
	})

	if config.TopK > 0 && len(passages) > config.TopK {
		passages = passages[:config.TopK]
	}
	return passages
}

// Relevant drops passages scoring below min.
func Relevant(passages []Passage, min float64) []Passage {
	var out []Passage
	for _, p := range passages {
		if p.Score >= min {
			out = append(out, p)
		}
	}
	return out
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
