package database

import (
	"fmt"

	"rag-chat-be/internal/model"

	"gorm.io/gorm"
)

// Migrate enables pgvector, creates the documents table and its HNSW
// cosine index. Safe to run repeatedly.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto").Error; err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}

	if err := db.AutoMigrate(&model.Document{}); err != nil {
		return fmt.Errorf("migrate documents: %w", err)
	}

	err := db.Exec(`CREATE INDEX IF NOT EXISTS documents_embedding_hnsw_idx
		ON documents USING hnsw (embedding_value vector_cosine_ops)`).Error
	if err != nil {
		return fmt.Errorf("create hnsw index: %w", err)
	}
	return nil
}
