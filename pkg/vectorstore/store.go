package vectorstore

import "context"

// Document is one stored text chunk with its vector.
type Document struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Source    string                 `json:"source,omitempty"`
	Score     float32                `json:"score,omitempty"`
	Embedding []float32              `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Store runs nearest-neighbour queries over the whole collection.
// Search returns at most limit documents in the store's ranking order.
type Store interface {
	Search(ctx context.Context, vector []float32, limit int) ([]Document, error)
	Insert(ctx context.Context, docs []Document) error
}

// Texts returns the Text field of each document, in order.
func Texts(docs []Document) []string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return texts
}
