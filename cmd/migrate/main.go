package main

import (
	"log"

	"hmo-assistant-be/internal/config"
	"hmo-assistant-be/internal/model"
	"hmo-assistant-be/pkg/database"
)

func main() {
	// 1. Load Environment Variables
	cfg := config.Load()

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Pre-Migration: Extensions
	log.Println("Step 1: Setting up extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}
	if err := database.EnsureVectorExtension(db); err != nil {
		log.Fatalf("Error: pgvector is required for retrieval: %v", err)
	}

	// 4. AutoMigrate
	log.Println("Step 2: Running AutoMigrate for the corpus...")
	if err := db.AutoMigrate(&model.CorpusChunk{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: partial index for the personalization filter
	log.Println("Step 3: Creating indexes...")

	postMigrationSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_corpus_chunks_hmo_tier
		 ON corpus_chunks (hmo, tier) WHERE deleted_at IS NULL;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: corpus schema is ready.")
}
