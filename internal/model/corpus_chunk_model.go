package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CorpusChunk is one retrievable passage of the medical-services knowledge base.
// HMO and Tier are NULL for general information that applies to everyone.
type CorpusChunk struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceId       string            `gorm:"type:varchar(255);not null;index"`
	Title          string            `gorm:"type:varchar(255)"`
	Content        string            `gorm:"type:text;not null"`
	HMO            *string           `gorm:"column:hmo;type:varchar(32);index"`
	Tier           *string           `gorm:"column:tier;type:varchar(32);index"`
	ChunkIndex     int               `gorm:"default:0"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector"` // dimension is fixed by the embedding model used at ingestion
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt    `gorm:"index"`
}

func (CorpusChunk) TableName() string {
	return "corpus_chunks"
}
