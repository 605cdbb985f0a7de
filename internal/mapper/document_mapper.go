package mapper

import (
	"encoding/json"
	"fmt"

	"rag-chat-be/internal/model"
	"rag-chat-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

const chunkIndexKey = "chunk_index"

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToDocument(e *model.Document, score float64) vectorstore.Document {
	meta := map[string]interface{}{}
	if len(e.Metadata) > 0 {
		_ = json.Unmarshal(e.Metadata, &meta)
	}
	meta[chunkIndexKey] = e.ChunkIndex

	return vectorstore.Document{
		ID:       e.Id.String(),
		Text:     e.Text,
		Source:   e.Source,
		Score:    float32(score),
		Metadata: meta,
	}
}

func (m *DocumentMapper) ToModel(d vectorstore.Document) (*model.Document, error) {
	id := uuid.New()
	if d.ID != "" {
		parsed, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("document id %q: %w", d.ID, err)
		}
		id = parsed
	}

	chunkIndex := 0
	meta := make(map[string]interface{}, len(d.Metadata))
	for k, v := range d.Metadata {
		if k == chunkIndexKey {
			if i, ok := v.(int); ok {
				chunkIndex = i
			}
			continue
		}
		meta[k] = v
	}

	var rawMeta datatypes.JSON
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return nil, err
		}
		rawMeta = b
	}

	return &model.Document{
		Id:             id,
		Text:           d.Text,
		Source:         d.Source,
		ChunkIndex:     chunkIndex,
		Metadata:       rawMeta,
		EmbeddingValue: pgvector.NewVector(d.Embedding),
	}, nil
}
