// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package signals

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader serves the current Extractor and hot-swaps it when an
// external rule file changes on disk.
//
// # Description
//
// The engine holds an atomic pointer to the active Extractor. Readers
// call Current() per turn; a reload builds a whole new Extractor and
// swaps the pointer, so an in-flight turn always sees a consistent
// table. A rule file that fails to parse after a change is rejected and
// the previous tables stay active.
//
// Writes are debounced: editors produce bursts of events, and the file
// is only re-read after the burst settles.
//
// # Thread Safety
//
// Safe for concurrent use. Close stops the watch goroutine.
type Reloader struct {
	path     string
	current  atomic.Pointer[Extractor]
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// NewReloader loads the rule file at path and starts watching it.
// The initial load must succeed; later reload failures only log.
func NewReloader(path string, logger *slog.Logger) (*Reloader, error) {
	ex, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create rule watcher: %w", err)
	}
	// Watch the parent directory: editors replace files by rename,
	// which drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch rule directory: %w", err)
	}

	r := &Reloader{
		path:     path,
		watcher:  watcher,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		done:     make(chan struct{}),
	}
	r.current.Store(ex)
	go r.run()
	return r, nil
}

// Current returns the active Extractor.
func (r *Reloader) Current() *Extractor {
	return r.current.Load()
}

// Close stops watching. The last loaded Extractor stays available.
func (r *Reloader) Close() error {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	return r.watcher.Close()
}

func (r *Reloader) run() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
				timerC = timer.C
			} else {
				timer.Reset(r.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			r.reload()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			if r.logger != nil {
				r.logger.Warn("rule watcher error", "error", err)
			}
		}
	}
}

func (r *Reloader) reload() {
	ex, err := LoadFile(r.path)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("rule reload rejected, keeping previous tables",
				"path", r.path, "error", err)
		}
		return
	}
	r.current.Store(ex)
	if r.logger != nil {
		r.logger.Info("rule tables reloaded", "path", r.path)
	}
}
