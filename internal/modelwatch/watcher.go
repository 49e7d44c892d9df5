// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelwatch

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before the callback runs.
const DefaultDebounce = 500 * time.Millisecond

// pollInterval is how often pending changes are checked against the debounce.
const pollInterval = 50 * time.Millisecond

// ErrNoModelPath is returned by New when no model path is given.
var ErrNoModelPath = errors.New("modelwatch: model path is empty")

// =============================================================================
// WATCHER
// =============================================================================

// Watcher reports when a model file is created or replaced. The parent
// directory is watched so atomic rename-over replacements are seen.
type Watcher struct {
	dir      string
	target   string
	debounce time.Duration
	onChange func(path string)

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a watcher for modelPath. onChange receives the full path of
// the settled file and runs on the watcher goroutine.
func New(modelPath string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, ErrNoModelPath
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(modelPath)
	if err != nil {
		abs = modelPath
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:      filepath.Dir(abs),
		target:   filepath.Base(abs),
		debounce: debounce,
		onChange: onChange,
		watcher:  fw,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Watch starts watching. The directory must exist.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	log.Printf("MODELWATCH | dir=%s file=%s debounce=%v", w.dir, w.target, w.debounce)
	return nil
}

// Close stops watching and waits for the goroutines to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// =============================================================================
// EVENT PROCESSING
// =============================================================================

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.mu.Lock()
				w.pending[event.Name] = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("MODELWATCH | err=%v", err)
		}
	}
}

// processPending fires the callback once a file has been quiet for the
// debounce interval.
func (w *Watcher) processPending() {
	defer w.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				if _, err := os.Stat(path); err != nil {
					continue
				}
				log.Printf("MODELWATCH | changed file=%s", path)
				if w.onChange != nil {
					w.onChange(path)
				}
			}
		}
	}
}
