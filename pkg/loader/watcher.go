package loader

import (
	"context"
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports supported files created or written under a directory.
type Watcher struct {
	watcher *fsnotify.Watcher
}

func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{watcher: w}, nil
}

// Watch emits changed file paths until ctx is done. Subdirectories are not
// followed.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan string, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	changed := make(chan string, 100)

	go func() {
		defer close(changed)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !Supported(event.Name) {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}

				select {
				case changed <- event.Name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[WARN] file watcher: %v", err)
			}
		}
	}()

	return changed, nil
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
