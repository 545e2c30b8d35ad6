package specification

import (
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// InPlanScope keeps general chunks plus the ones written for the member's
// HMO and tier. Empty fields do not filter.
type InPlanScope struct {
	HMO  string
	Tier string
}

func (s InPlanScope) Apply(db *gorm.DB) *gorm.DB {
	if s.HMO != "" {
		db = db.Where("(hmo IS NULL OR hmo = ?)", s.HMO)
	}
	if s.Tier != "" {
		db = db.Where("(tier IS NULL OR tier = ?)", s.Tier)
	}
	return db
}

// MinSimilarity drops chunks whose cosine similarity to Vector is below Threshold.
// Cosine distance in pgvector is 1 - cosine_similarity.
type MinSimilarity struct {
	Vector    pgvector.Vector
	Threshold float64
}

func (s MinSimilarity) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("1 - (embedding_value <=> ?) >= ?", s.Vector, s.Threshold)
}
