package service

import (
	"context"
	"sync"

	"rag-chat-be/pkg/embedding"
	"rag-chat-be/pkg/vectorstore"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	errs   []error
	vector []float32
	texts  []string
	tasks  []string
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.tasks = append(f.tasks, taskType)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	vec := f.vector
	if vec == nil {
		vec = []float32{0.1, 0.2, 0.3}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

func (f *fakeEmbedder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type fakeStore struct {
	mu       sync.Mutex
	docs     []vectorstore.Document
	errs     []error
	limits   []int
	inserted []vectorstore.Document
	deleted  []string
}

func (f *fakeStore) Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.docs, nil
}

func (f *fakeStore) Insert(ctx context.Context, docs []vectorstore.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, docs...)
	return nil
}

func (f *fakeStore) DeleteBySource(ctx context.Context, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, source)
	return nil
}

type logEntry struct {
	level   string
	module  string
	message string
	details map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, module, message string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, module, message, details})
}

func (l *recordingLogger) Debug(module, message string, details map[string]interface{}) {
	l.add("debug", module, message, details)
}
func (l *recordingLogger) Info(module, message string, details map[string]interface{}) {
	l.add("info", module, message, details)
}
func (l *recordingLogger) Warn(module, message string, details map[string]interface{}) {
	l.add("warn", module, message, details)
}
func (l *recordingLogger) Error(module, message string, details map[string]interface{}) {
	l.add("error", module, message, details)
}
func (l *recordingLogger) Sync() error { return nil }

func (l *recordingLogger) byLevel(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}
