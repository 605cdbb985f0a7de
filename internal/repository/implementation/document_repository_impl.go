package implementation

import (
	"context"

	"rag-chat-be/internal/mapper"
	"rag-chat-be/internal/model"
	"rag-chat-be/internal/repository/contract"
	"rag-chat-be/pkg/vectorstore"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

const insertBatchSize = 100

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

// Search ranks the whole table by cosine distance: embedding_value <=> vector.
func (r *DocumentRepositoryImpl) Search(ctx context.Context, embedding []float32, limit int) ([]vectorstore.Document, error) {
	type result struct {
		model.Document
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table(model.Document{}.TableName()).
		Select("documents.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Order(gorm.Expr("embedding_value <=> ?", queryVector)).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	docs := make([]vectorstore.Document, len(results))
	for i := range results {
		docs[i] = r.mapper.ToDocument(&results[i].Document, results[i].Similarity)
	}
	return docs, nil
}

func (r *DocumentRepositoryImpl) Insert(ctx context.Context, docs []vectorstore.Document) error {
	models := make([]*model.Document, len(docs))
	for i, d := range docs {
		m, err := r.mapper.ToModel(d)
		if err != nil {
			return err
		}
		models[i] = m
	}
	if len(models) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(models, insertBatchSize).Error
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Document{}).Count(&count).Error
	return count, err
}

func (r *DocumentRepositoryImpl) DeleteBySource(ctx context.Context, source string) error {
	return r.db.WithContext(ctx).Where("source = ?", source).Delete(&model.Document{}).Error
}
