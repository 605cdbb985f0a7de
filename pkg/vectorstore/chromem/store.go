// Package chromem keeps the vector collection inside the process, optionally
// persisted to a directory.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"rag-chat-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

const sourceKey = "source"

var errNoEmbedder = errors.New("chromem store requires precomputed embeddings")

type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
}

var _ vectorstore.Store = (*Store)(nil)

// NewStore opens the collection. An empty dbPath keeps everything in memory.
func NewStore(dbPath, collectionName string) (*Store, error) {
	var db *chromem.DB
	if dbPath == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dbPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	// Texts are always embedded upstream; the collection never embeds on its own.
	noEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errNoEmbedder
	}
	c, err := db.GetOrCreateCollection(collectionName, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}

	return &Store{db: db, collection: c}, nil
}

func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Document, error) {
	// chromem rejects nResults larger than the collection.
	n := min(limit, s.collection.Count())
	if n <= 0 {
		return []vectorstore.Document{}, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	docs := make([]vectorstore.Document, len(results))
	for i, r := range results {
		meta := make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			if k != sourceKey {
				meta[k] = v
			}
		}
		docs[i] = vectorstore.Document{
			ID:       r.ID,
			Text:     r.Content,
			Source:   r.Metadata[sourceKey],
			Score:    r.Similarity,
			Metadata: meta,
		}
	}
	return docs, nil
}

func (s *Store) Insert(ctx context.Context, docs []vectorstore.Document) error {
	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta := make(map[string]string, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			meta[k] = fmt.Sprint(v)
		}
		if d.Source != "" {
			meta[sourceKey] = d.Source
		}
		chromemDocs[i] = chromem.Document{
			ID:        id,
			Content:   d.Text,
			Metadata:  meta,
			Embedding: d.Embedding,
		}
	}

	if err := s.collection.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (s *Store) Count() int {
	return s.collection.Count()
}
