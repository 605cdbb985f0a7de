package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"rag-chat-be/internal/constant"
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/service"
	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/relay"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatService struct {
	mu        sync.Mutex
	stream    llm.Stream
	err       error
	requests  []*dto.ChatRequest
	deadline  bool
	summaries []relay.Summary
}

func (f *fakeChatService) StreamReply(ctx context.Context, req *dto.ChatRequest) (*service.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &service.ChatReply{RequestID: "req", Stream: f.stream}, nil
}

func (f *fakeChatService) RecordCompletion(ctx context.Context, reply *service.ChatReply, summary relay.Summary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, summary)
}

func (f *fakeChatService) lastSummary() (relay.Summary, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.summaries) == 0 {
		return relay.Summary{}, false
	}
	return f.summaries[len(f.summaries)-1], true
}

func newChatApp(svc service.IChatService) *fiber.App {
	app := fiber.New()
	NewChatController(svc, logger.NewNopLogger(), time.Minute).RegisterRoutes(app.Group("/api"))
	return app
}

func postChat(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestChat_StreamsChunks(t *testing.T) {
	stream := llm.NewStaticStream([]string{"Paris", " is", " the capital."}, nil)
	svc := &fakeChatService{stream: stream}
	app := newChatApp(svc)

	resp := postChat(t, app, `{"messages":[{"id":"1","role":"user","content":"Capital of France?"}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, constant.ChatContentType, resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital.", string(body))

	require.Len(t, svc.requests, 1)
	assert.Equal(t, "Capital of France?", svc.requests[0].LastMessage())
	assert.True(t, svc.deadline)

	assert.Eventually(t, func() bool {
		s, ok := svc.lastSummary()
		return ok && s.Err == nil && s.Chunks == 3
	}, time.Second, 10*time.Millisecond)
	assert.True(t, stream.IsClosed())
}

func TestChat_PreStreamFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{name: "unparsable body", body: `{"messages": [`},
		{name: "empty messages", body: `{"messages":[]}`, err: service.ErrMalformedRequest},
		{name: "embedding failure", body: `{"messages":[{"role":"user","content":"q"}]}`, err: service.ErrEmbeddingService},
		{name: "search failure", body: `{"messages":[{"role":"user","content":"q"}]}`, err: service.ErrSearchService},
		{name: "generation failure", body: `{"messages":[{"role":"user","content":"q"}]}`, err: service.ErrGenerationService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newChatApp(&fakeChatService{err: tt.err})
			resp := postChat(t, app, tt.body)

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
			body, _ := io.ReadAll(resp.Body)
			assert.JSONEq(t, `{"error":"Failed to process message"}`, string(body))
		})
	}
}

func TestChat_MidStreamFailureTruncates(t *testing.T) {
	upstreamErr := errors.New("connection reset")
	svc := &fakeChatService{stream: llm.NewStaticStream([]string{"partial"}, upstreamErr)}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"q"}]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err == nil {
		body, readErr := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Error(t, readErr, "chunked body must not terminate cleanly")
		assert.NotContains(t, string(body), "Failed to process message")
	}

	assert.Eventually(t, func() bool {
		s, ok := svc.lastSummary()
		return ok && errors.Is(s.Err, relay.ErrStreamRelay) && errors.Is(s.Err, upstreamErr)
	}, time.Second, 10*time.Millisecond)
}
