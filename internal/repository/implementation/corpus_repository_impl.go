package implementation

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"hmo-assistant-be/internal/model"
	"hmo-assistant-be/internal/repository/contract"
	"hmo-assistant-be/internal/repository/scope"
	"hmo-assistant-be/internal/repository/specification"
)

type CorpusRepositoryImpl struct {
	db *gorm.DB
}

func NewCorpusRepository(db *gorm.DB) contract.CorpusRepository {
	return &CorpusRepositoryImpl{db: db}
}

func (r *CorpusRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CorpusRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, chunkScope contract.ChunkScope, threshold float64) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.CorpusChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("corpus_chunks").
		Select("corpus_chunks.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Scopes(scope.ExcludeSoftDelete)

	err := r.applySpecifications(query,
		specification.MinSimilarity{Vector: queryVector, Threshold: threshold},
		specification.InPlanScope{HMO: chunkScope.HMO, Tier: chunkScope.Tier},
	).
		Scopes(scope.OrderBySimilarityDesc).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i := range results {
		chunk := results[i].CorpusChunk
		scored[i] = &contract.ScoredChunk{
			Chunk:      &chunk,
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}

func (r *CorpusRepositoryImpl) Stats(ctx context.Context) (*contract.CorpusStats, error) {
	stats := &contract.CorpusStats{ByHMO: map[string]int64{}}

	if err := r.db.WithContext(ctx).Model(&model.CorpusChunk{}).
		Count(&stats.Chunks).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.CorpusChunk{}).
		Distinct("source_id").Count(&stats.Sources).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		HMO   *string
		Count int64
	}
	if err := r.db.WithContext(ctx).Model(&model.CorpusChunk{}).
		Select("hmo, count(*) as count").
		Group("hmo").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		key := "general"
		if row.HMO != nil {
			key = *row.HMO
		}
		stats.ByHMO[key] = row.Count
	}
	return stats, nil
}
