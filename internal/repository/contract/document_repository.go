package contract

import (
	"context"

	"rag-chat-be/pkg/vectorstore"
)

// DocumentRepository is the pgvector-backed vector store.
type DocumentRepository interface {
	vectorstore.Store
	Count(ctx context.Context) (int64, error)
	DeleteBySource(ctx context.Context, source string) error
}
