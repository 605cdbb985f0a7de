package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"rag-chat-be/internal/bootstrap"
	"rag-chat-be/internal/config"
	"rag-chat-be/internal/controller"
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/pkg/logger"
	"rag-chat-be/internal/service"
	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/relay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatBody = `{"messages":[{"id":"1","role":"user","content":"hello"}]}`

type replyService struct {
	stream llm.Stream
	err    error
}

func (s *replyService) StreamReply(ctx context.Context, req *dto.ChatRequest) (*service.ChatReply, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.ChatReply{RequestID: "req", Stream: s.stream}, nil
}

func (s *replyService) RecordCompletion(context.Context, *service.ChatReply, relay.Summary) {}

// gatedStream yields first, then blocks until release is closed before
// yielding rest.
type gatedStream struct {
	first, rest string
	release     chan struct{}
	step        int
	text        string
}

func (s *gatedStream) Next() bool {
	switch s.step {
	case 0:
		s.text = s.first
	case 1:
		<-s.release
		s.text = s.rest
	default:
		return false
	}
	s.step++
	return true
}

func (s *gatedStream) Text() string { return s.text }
func (s *gatedStream) Err() error   { return nil }
func (s *gatedStream) Close() error { return nil }

// startChatServer serves the full middleware chain on a loopback listener.
func startChatServer(t *testing.T, svc service.IChatService) string {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{
		CorsAllowedOrigins: "*",
		ChatStreamTimeout:  time.Minute,
	}}
	container := &bootstrap.Container{
		ChatController:     controller.NewChatController(svc, logger.NewNopLogger(), time.Minute),
		DocumentController: stubDocumentController{},
		HealthController:   controller.NewHealthController("chromem", "gemini", "gemini"),
		Logger:             logger.NewNopLogger(),
	}
	srv := New(cfg, container)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.GetApp().Listener(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return "http://" + ln.Addr().String() + "/api/chat"
}

func TestChatStream_FirstChunkBeforeSourceFinishes(t *testing.T) {
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }
	defer unblock()

	url := startChatServer(t, &replyService{stream: &gatedStream{first: "first", rest: " second", release: release}})

	type firstRead struct {
		resp *http.Response
		text string
		err  error
	}
	got := make(chan firstRead, 1)
	go func() {
		resp, err := http.Post(url, "application/json", strings.NewReader(chatBody))
		if err != nil {
			got <- firstRead{err: err}
			return
		}
		buf := make([]byte, len("first"))
		_, err = io.ReadFull(resp.Body, buf)
		got <- firstRead{resp: resp, text: string(buf), err: err}
	}()

	var first firstRead
	select {
	case first = <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("first chunk was held back until the source finished")
	}
	require.NoError(t, first.err)
	defer first.resp.Body.Close()
	assert.Equal(t, "first", first.text)

	assert.Equal(t, http.StatusOK, first.resp.StatusCode)
	assert.Equal(t, int64(-1), first.resp.ContentLength)
	assert.Empty(t, first.resp.Header.Get("Content-Length"))
	assert.Equal(t, []string{"chunked"}, first.resp.TransferEncoding)

	unblock()
	rest, err := io.ReadAll(first.resp.Body)
	require.NoError(t, err)
	assert.Equal(t, " second", string(rest))
}

func TestChatStream_MidStreamErrorTruncates(t *testing.T) {
	stream := llm.NewStaticStream([]string{"partial "}, errors.New("upstream broke"))
	url := startChatServer(t, &replyService{stream: stream})

	resp, err := http.Post(url, "application/json", strings.NewReader(chatBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(-1), resp.ContentLength)

	body, err := io.ReadAll(resp.Body)
	assert.Error(t, err, "missing terminating chunk must surface as a read error")
	assert.Equal(t, "partial ", string(body))
	assert.NotContains(t, string(body), "upstream broke")
}

func TestChatStream_PreStreamFailureThroughMiddleware(t *testing.T) {
	url := startChatServer(t, &replyService{err: service.ErrEmbeddingService})

	resp, err := http.Post(url, "application/json", strings.NewReader(chatBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Failed to process message"}`, string(body))
}
