// Package watch follows a text file on disk and keeps a session's buffer in
// step with it, so highlights can be re-rendered after every save.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/proofread/internal/session"
)

// Change is delivered after the watched file's content changes.
type Change struct {
	Path string
	Text string
	// Dropped is true when the edit invalidated the open corrections.
	Dropped bool
}

// Watch feeds every new version of path into sess and calls onChange until
// ctx is cancelled. The parent directory is watched so editors that save by
// rename are followed too. sess must not be used by another goroutine while
// Watch runs; onChange is called on the watching goroutine.
func Watch(ctx context.Context, path string, sess *session.Session, onChange func(Change), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "watch", "path", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				// The file may be mid-rename; the following Create delivers it.
				if !errors.Is(err, os.ErrNotExist) {
					logger.Warn("reading watched file failed", "error", err)
				}
				continue
			}
			text := string(data)
			if text == sess.Buffer() {
				continue
			}
			dropped := sess.Edit(text)
			logger.Debug("file changed", "runes", len([]rune(text)), "dropped", dropped)
			if onChange != nil {
				onChange(Change{Path: path, Text: text, Dropped: dropped})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
