package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"rag-chat-be/internal/dto"
	"rag-chat-be/pkg/upstream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Topic:       "ingest",
		PoisonTopic: "ingest_poison",
		MaxRetries:  2,
		RetryDelay:  5 * time.Millisecond,
	}
}

// failingIngest fails every Ingest call with err and counts the calls.
type failingIngest struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *failingIngest) Enqueue(context.Context, *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	return nil, nil
}

func (f *failingIngest) Ingest(context.Context, *dto.PublishIngestDocumentMessage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 0, f.err
}

func (f *failingIngest) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func startConsumer(t *testing.T, pubSub *gochannel.GoChannel, ingest IIngestService, log *recordingLogger) <-chan *message.Message {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	poisoned, err := pubSub.Subscribe(ctx, testConsumerConfig().PoisonTopic)
	require.NoError(t, err)

	consumer := NewConsumerService(pubSub, pubSub, testConsumerConfig(), ingest, log, watermill.NopLogger{})
	require.NoError(t, consumer.Consume(ctx))
	return poisoned
}

func publishDocument(t *testing.T, pubSub *gochannel.GoChannel, source string) {
	t.Helper()
	raw, err := json.Marshal(dto.PublishIngestDocumentMessage{Source: source, Text: "alpha"})
	require.NoError(t, err)
	require.NoError(t, NewPublisherService(testConsumerConfig().Topic, pubSub).Publish(context.Background(), raw))
}

func waitPoisoned(t *testing.T, poisoned <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-poisoned:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached the poison topic")
		return nil
	}
}

func TestConsumer_IngestsQueuedDocuments(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	store := &fakeStore{}
	log := &recordingLogger{}
	ingest := NewIngestService(NewPublisherService("ingest", pubSub), &fakeEmbedder{}, store, log, 1000, 200)
	startConsumer(t, pubSub, ingest, log)

	_, err := ingest.Enqueue(context.Background(), &dto.IngestDocumentRequest{Source: "a.md", Text: "alpha"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.inserted) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_MalformedPayloadIsPoisonedWithoutRetry(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	log := &recordingLogger{}
	ingest := &failingIngest{}
	poisoned := startConsumer(t, pubSub, ingest, log)

	raw, _ := json.Marshal("not an object")
	require.NoError(t, NewPublisherService("ingest", pubSub).Publish(context.Background(), raw))

	msg := waitPoisoned(t, poisoned)
	assert.Contains(t, msg.Metadata.Get(middleware.ReasonForPoisonedKey), ErrMalformedPayload.Error())
	assert.Equal(t, 0, ingest.attempts())
	assert.Len(t, log.byLevel("error"), 1)
	assert.Empty(t, log.byLevel("warn"))
}

func TestConsumer_TerminalErrorIsNotRedelivered(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	log := &recordingLogger{}
	ingest := &failingIngest{err: upstream.NewStatusError("gemini", 400, []byte(`{"error":"bad input"}`))}
	poisoned := startConsumer(t, pubSub, ingest, log)

	publishDocument(t, pubSub, "bad.md")

	msg := waitPoisoned(t, poisoned)
	assert.Contains(t, msg.Metadata.Get(middleware.ReasonForPoisonedKey), "400")

	// Give a redelivery loop time to show up.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, ingest.attempts())
}

func TestConsumer_TransientErrorRetriesThenPoisons(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	log := &recordingLogger{}
	ingest := &failingIngest{err: upstream.NewStatusError("gemini", 503, nil)}
	poisoned := startConsumer(t, pubSub, ingest, log)

	publishDocument(t, pubSub, "flaky.md")
	waitPoisoned(t, poisoned)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1+testConsumerConfig().MaxRetries, ingest.attempts())
	assert.Len(t, log.byLevel("warn"), testConsumerConfig().MaxRetries)
}
