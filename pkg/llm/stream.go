package llm

import (
	"bufio"
	"io"
	"sync"
)

// Stream is a single-pass sequence of generated text chunks.
//
//	for s.Next() {
//		fmt.Print(s.Text())
//	}
//	if err := s.Err(); err != nil { ... }
//
// Close releases the underlying connection and may be called more than once.
type Stream interface {
	Next() bool
	Text() string
	Err() error
	Close() error
}

// LineParser turns one line of a streamed response body into a text chunk.
// done=true ends the stream after text is emitted; a non-nil error aborts it.
type LineParser func(line []byte) (text string, done bool, err error)

// LineStream reads a line-delimited streaming body (SSE or NDJSON).
// Lines that yield no text are skipped.
type LineStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	parse   LineParser

	text string
	err  error
	done bool

	closeOnce sync.Once
	closeErr  error
}

const maxLineSize = 1024 * 1024

func NewLineStream(body io.ReadCloser, parse LineParser) *LineStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineStream{
		body:    body,
		scanner: scanner,
		parse:   parse,
	}
}

func (s *LineStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for s.scanner.Scan() {
		text, done, err := s.parse(s.scanner.Bytes())
		if err != nil {
			s.err = err
			return false
		}
		if done {
			s.done = true
		}
		if text != "" {
			s.text = text
			return true
		}
		if done {
			return false
		}
	}
	if err := s.scanner.Err(); err != nil {
		s.err = err
	}
	s.done = true
	return false
}

func (s *LineStream) Text() string { return s.text }

func (s *LineStream) Err() error { return s.err }

func (s *LineStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
