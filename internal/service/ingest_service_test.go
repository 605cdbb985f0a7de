package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"rag-chat-be/internal/dto"
	"rag-chat-be/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePayloads struct {
	payloads [][]byte
	err      error
}

func (c *capturePayloads) Publish(ctx context.Context, payload []byte) error {
	c.payloads = append(c.payloads, payload)
	return c.err
}

func TestEnqueue_PublishesPayload(t *testing.T) {
	pub := &capturePayloads{}
	svc := NewIngestService(pub, &fakeEmbedder{}, &fakeStore{}, &recordingLogger{}, 1000, 200)

	res, err := svc.Enqueue(context.Background(), &dto.IngestDocumentRequest{Source: "faq.md", Text: "hello"})
	require.NoError(t, err)
	assert.True(t, res.Queued)

	require.Len(t, pub.payloads, 1)
	var msg dto.PublishIngestDocumentMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, "faq.md", msg.Source)
	assert.Equal(t, "hello", msg.Text)
}

func TestEnqueue_PublishError(t *testing.T) {
	pub := &capturePayloads{err: errors.New("closed")}
	svc := NewIngestService(pub, &fakeEmbedder{}, &fakeStore{}, &recordingLogger{}, 1000, 200)

	_, err := svc.Enqueue(context.Background(), &dto.IngestDocumentRequest{Source: "a", Text: "b"})
	assert.Error(t, err)
}

func TestIngest_SplitsEmbedsAndReplaces(t *testing.T) {
	emb := &fakeEmbedder{}
	store := &fakeStore{}
	svc := NewIngestService(&capturePayloads{}, emb, store, &recordingLogger{}, 10, 2)

	n, err := svc.Ingest(context.Background(), &dto.PublishIngestDocumentMessage{
		Source:   "guide.txt",
		Text:     strings.Repeat("x", 25),
		Metadata: map[string]interface{}{"lang": "en"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, task := range emb.tasks {
		assert.Equal(t, embedding.TaskRetrievalDocument, task)
	}
	assert.Equal(t, []string{"guide.txt"}, store.deleted)
	require.Len(t, store.inserted, 3)
	assert.Equal(t, 2, store.inserted[2].Metadata["chunk_index"])
	assert.Equal(t, "en", store.inserted[0].Metadata["lang"])
	assert.Equal(t, "guide.txt", store.inserted[1].Source)
}

func TestIngest_ChunkIndexNotOverriddenByCallerMetadata(t *testing.T) {
	store := &fakeStore{}
	svc := NewIngestService(&capturePayloads{}, &fakeEmbedder{}, store, &recordingLogger{}, 5, 0)

	_, err := svc.Ingest(context.Background(), &dto.PublishIngestDocumentMessage{
		Source:   "a.md",
		Text:     "aaaaabbbbb",
		Metadata: map[string]interface{}{"chunk_index": 99, "lang": "en"},
	})
	require.NoError(t, err)

	require.Len(t, store.inserted, 2)
	assert.Equal(t, 0, store.inserted[0].Metadata["chunk_index"])
	assert.Equal(t, 1, store.inserted[1].Metadata["chunk_index"])
	assert.Equal(t, "en", store.inserted[1].Metadata["lang"])
}

func TestIngest_EmptyTextIsNoop(t *testing.T) {
	store := &fakeStore{}
	svc := NewIngestService(&capturePayloads{}, &fakeEmbedder{}, store, &recordingLogger{}, 10, 2)

	n, err := svc.Ingest(context.Background(), &dto.PublishIngestDocumentMessage{Source: "s", Text: "  \n"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.inserted)
}

func TestIngest_TerminalEmbeddingErrorStopsInsert(t *testing.T) {
	emb := &fakeEmbedder{errs: []error{errors.New("context canceled by test")}}
	store := &fakeStore{}
	svc := NewIngestService(&capturePayloads{}, emb, store, &recordingLogger{}, 10, 2)
	svc.(*ingestService).policy.Attempts = 1

	_, err := svc.Ingest(context.Background(), &dto.PublishIngestDocumentMessage{Source: "s", Text: "abc"})
	assert.Error(t, err)
	assert.Empty(t, store.inserted)
	assert.Empty(t, store.deleted)
}
