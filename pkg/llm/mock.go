package llm

import (
	"context"
	"sync"
)

// StaticStream replays fixed chunks, then reports Err. Used by tests and
// by callers that need an already-materialised reply.
type StaticStream struct {
	chunks []string
	err    error
	pos    int

	mu     sync.Mutex
	closed bool
}

func NewStaticStream(chunks []string, err error) *StaticStream {
	return &StaticStream{chunks: chunks, err: err, pos: -1}
}

func (s *StaticStream) Next() bool {
	if s.IsClosed() || s.pos+1 >= len(s.chunks) {
		s.pos = len(s.chunks)
		return false
	}
	s.pos++
	return true
}

func (s *StaticStream) Text() string {
	if s.pos < 0 || s.pos >= len(s.chunks) {
		return ""
	}
	return s.chunks[s.pos]
}

func (s *StaticStream) Err() error {
	if s.pos >= len(s.chunks) {
		return s.err
	}
	return nil
}

func (s *StaticStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *StaticStream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockProvider returns the queued results of successive GenerateStream calls.
type MockProvider struct {
	mu      sync.Mutex
	Results []MockResult
	Prompts []string
	Options []Options
}

type MockResult struct {
	Stream Stream
	Err    error
}

func (m *MockProvider) GenerateStream(ctx context.Context, prompt string, options ...Option) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	m.Options = append(m.Options, ApplyOptions(Options{}, options...))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.Results) == 0 {
		return NewStaticStream(nil, nil), nil
	}
	res := m.Results[0]
	if len(m.Results) > 1 {
		m.Results = m.Results[1:]
	}
	return res.Stream, res.Err
}

func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
