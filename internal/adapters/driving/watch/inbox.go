// Package watch turns a directory into an inbox: every text file dropped
// into it is handed to a handler once writes to it have settled.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/deepcode-labs/deepcode/internal/logger"
)

// DefaultDebounce is how long a file must be quiet before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// DefaultExtensions are the file types picked up by default.
var DefaultExtensions = []string{".md", ".markdown", ".txt", ".html", ".htm", ".tex", ".rst"}

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Inbox watches one directory, non-recursively.
type Inbox struct {
	dir        string
	handler    Handler
	debounce   time.Duration
	extensions map[string]bool
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithDebounce sets the quiet period before a file is handled.
func WithDebounce(d time.Duration) Option {
	return func(in *Inbox) {
		if d > 0 {
			in.debounce = d
		}
	}
}

// WithExtensions replaces the accepted file extensions.
func WithExtensions(exts ...string) Option {
	return func(in *Inbox) {
		in.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			in.extensions[strings.ToLower(ext)] = true
		}
	}
}

// New creates an inbox over dir.
func New(dir string, handler Handler, opts ...Option) *Inbox {
	in := &Inbox{
		dir:      dir,
		handler:  handler,
		debounce: DefaultDebounce,
	}
	WithExtensions(DefaultExtensions...)(in)
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run watches until ctx is cancelled. Settled files are handled one at a
// time, oldest first. Handler errors are logged and do not stop the inbox.
func (in *Inbox) Run(ctx context.Context) error {
	info, err := os.Stat(in.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", in.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("watch %s: %w", in.dir, err)
	}
	logger.Info("watching %s", in.dir)

	ticker := time.NewTicker(in.debounce / 2)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if path := in.handleFsEvent(event); path != "" {
				pending[path] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch %s: %v", in.dir, err)

		case now := <-ticker.C:
			for _, path := range settled(pending, now, in.debounce) {
				delete(pending, path)
				if err := in.handler(ctx, path); err != nil {
					logger.Error("%s: %v", path, err)
				}
				if ctx.Err() != nil {
					return nil
				}
			}
		}
	}
}

// handleFsEvent returns the path of a file worth handling, or "".
func (in *Inbox) handleFsEvent(event fsnotify.Event) string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return ""
	}
	if isHidden(event.Name) || !in.extensions[strings.ToLower(filepath.Ext(event.Name))] {
		return ""
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	return event.Name
}

// settled returns the pending paths quiet for at least d, oldest first.
func settled(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= d {
			ready = append(ready, path)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if pending[ready[i]].Equal(pending[ready[j]]) {
			return ready[i] < ready[j]
		}
		return pending[ready[i]].Before(pending[ready[j]])
	})
	return ready
}

// isHidden reports whether the file name starts with a dot. Editors write
// swap and temporary files this way.
func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
