package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rag-chat-be/internal/bootstrap"
	"rag-chat-be/internal/config"
	"rag-chat-be/internal/dto"
	"rag-chat-be/internal/service"
	"rag-chat-be/pkg/loader"

	"github.com/fatih/color"
)

func main() {
	path := flag.String("path", "data", "file or directory to ingest")
	watch := flag.Bool("watch", false, "keep running and re-ingest files as they change")
	flag.Parse()

	cfg := config.Load()
	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := loader.Walk(*path)
	if err != nil {
		color.Red("Failed to list %s: %v", *path, err)
		os.Exit(1)
	}

	// Both passes name sources against the same root so re-ingest replaces.
	root := loader.Root(*path)

	color.Cyan("Ingesting %d file(s) from %s", len(files), *path)
	failed := 0
	for _, f := range files {
		if !ingestFile(ctx, container.IngestService, root, f) {
			failed++
		}
	}
	if failed > 0 {
		color.Yellow("%d file(s) failed", failed)
	}

	if !*watch {
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	dir := root

	w, err := loader.NewWatcher()
	if err != nil {
		color.Red("Failed to start watcher: %v", err)
		os.Exit(1)
	}
	defer w.Close()

	changed, err := w.Watch(ctx, dir)
	if err != nil {
		color.Red("Failed to watch %s: %v", dir, err)
		os.Exit(1)
	}

	color.Cyan("Watching %s (Ctrl+C to stop)", dir)
	pending := map[string]bool{}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-changed:
			if !ok {
				return
			}
			// Editors emit several writes per save; collect them until the next tick.
			pending[f] = true
		case <-ticker.C:
			for f := range pending {
				ingestFile(ctx, container.IngestService, dir, f)
				delete(pending, f)
			}
		}
	}
}

func ingestFile(ctx context.Context, ingest service.IIngestService, root, path string) bool {
	text, err := loader.Load(path)
	if err != nil {
		color.Red("  x %s: %v", path, err)
		return false
	}

	source := loader.SourceName(root, path)

	chunks, err := ingest.Ingest(ctx, &dto.PublishIngestDocumentMessage{
		Source:   source,
		Text:     text,
		Metadata: map[string]interface{}{"file_name": filepath.Base(path)},
	})
	if err != nil {
		color.Red("  x %s: %v", source, err)
		return false
	}

	color.Green("  ok %s (%d chunks)", source, chunks)
	return true
}
