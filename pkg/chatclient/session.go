// Package chatclient holds the client side of a chat: the message list, the
// duplicate-submit guard and the incremental rendering of a streamed reply.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	FallbackErrorMessage = "Sorry, there was an error processing your message."
)

var (
	ErrEmptyInput       = errors.New("input is empty")
	ErrAwaitingResponse = errors.New("a response is still streaming")
)

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting-response"
)

type Message struct {
	Id      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Snapshot is handed to the update hook after every state change.
type Snapshot struct {
	State    State
	Messages []Message
}

type Option func(*Session)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.client = c
	}
}

// WithOnUpdate registers a hook called, in order, after every change.
// It runs on the submitting goroutine.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(s *Session) {
		s.onUpdate = fn
	}
}

// WithHeader adds a header to every request (e.g. Authorization).
func WithHeader(key, value string) Option {
	return func(s *Session) {
		s.headers.Set(key, value)
	}
}

type Session struct {
	endpoint string
	client   *http.Client
	headers  http.Header
	onUpdate func(Snapshot)

	mu       sync.Mutex
	state    State
	messages []Message
}

func NewSession(endpoint string, opts ...Option) *Session {
	s := &Session{
		endpoint: endpoint,
		client:   http.DefaultClient,
		headers:  http.Header{},
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

type chatRequest struct {
	Messages []Message `json:"messages"`
}

// Submit sends input and streams the reply into a placeholder assistant
// message. It blocks until the reply ends. Blank input and submissions
// while a reply is streaming are rejected without touching the messages.
// Any request or read failure leaves the fallback text in the conversation
// and is returned; the session is idle again either way.
func (s *Session) Submit(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	if s.state == StateAwaitingResponse {
		s.mu.Unlock()
		return ErrAwaitingResponse
	}
	s.state = StateAwaitingResponse
	user := Message{Id: uuid.NewString(), Role: RoleUser, Content: input}
	placeholder := Message{Id: uuid.NewString(), Role: RoleAssistant}
	history := append(append([]Message(nil), s.messages...), user)
	s.messages = append(s.messages, user, placeholder)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	err := s.stream(ctx, history, placeholder.Id)
	if err != nil {
		s.fail(placeholder.Id)
	}

	s.mu.Lock()
	s.state = StateIdle
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	return err
}

func (s *Session) stream(ctx context.Context, history []Message, placeholderId string) error {
	body, err := json.Marshal(chatRequest{Messages: history})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header[k] = v
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat endpoint returned status %d", resp.StatusCode)
	}

	var (
		dec         utf8Decoder
		accumulated strings.Builder
		buf         = make([]byte, 4096)
	)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			accumulated.WriteString(dec.Decode(buf[:n]))
			s.setContent(placeholderId, accumulated.String())
		}
		if errors.Is(readErr, io.EOF) {
			if tail := dec.Flush(); tail != "" {
				accumulated.WriteString(tail)
				s.setContent(placeholderId, accumulated.String())
			}
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read reply: %w", readErr)
		}
	}
}

// setContent overwrites the placeholder with the whole reply so far.
func (s *Session) setContent(id, content string) {
	s.mu.Lock()
	for i := range s.messages {
		if s.messages[i].Id == id {
			s.messages[i].Content = content
			break
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// fail writes the fallback into an empty placeholder, or appends it as a
// new assistant message when part of the reply already arrived.
func (s *Session) fail(placeholderId string) {
	s.mu.Lock()
	replaced := false
	for i := range s.messages {
		if s.messages[i].Id == placeholderId && s.messages[i].Content == "" {
			s.messages[i].Content = FallbackErrorMessage
			replaced = true
			break
		}
	}
	if !replaced {
		s.messages = append(s.messages, Message{
			Id:      uuid.NewString(),
			Role:    RoleAssistant,
			Content: FallbackErrorMessage,
		})
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:    s.state,
		Messages: append([]Message(nil), s.messages...),
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}
