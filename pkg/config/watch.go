package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 25 * time.Millisecond

// Watcher reloads the configuration when one of the loader's files changes.
// Stop must be called to release filesystem resources.
type Watcher struct {
	cancel context.CancelFunc
	done   chan struct{}
	ready  chan struct{}
	once   sync.Once
}

// Ready is closed once the watched directories are registered.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Stop halts the watcher and waits for the underlying goroutine to exit.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
}

// Watch re-runs Load whenever a configured file is written, created or
// replaced, and hands each valid result to onChange. Invalid files are
// reported to onError and the previous configuration stays in effect.
func (l *Loader) Watch(ctx context.Context, onChange func(Config), onError func(error)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("config: watch requires a change callback")
	}

	targets := map[string]struct{}{}
	dirs := map[string]struct{}{}
	for _, path := range l.files {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("config: resolve %s: %w", path, err)
		}
		abs = filepath.Clean(abs)
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	if len(targets) == 0 {
		return nil, errors.New("config: no config file to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch: %w", err)
	}
	// directories rather than files so atomic renames keep being seen
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("config: watch add %s: %w", dir, err)
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{cancel: cancel, done: make(chan struct{}), ready: make(chan struct{})}

	report := func(err error) {
		if onError != nil {
			onError(err)
		}
	}

	go func() {
		defer close(w.done)
		defer func() {
			if err := fsw.Close(); err != nil {
				report(fmt.Errorf("config: watch close: %w", err))
			}
		}()
		close(w.ready)

		var timer *time.Timer
		var fire <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-fire:
				fire = nil
				cfg, err := l.Load(watchCtx)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					report(err)
					continue
				}
				onChange(cfg)
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if _, watched := targets[filepath.Clean(event.Name)]; !watched {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				report(fmt.Errorf("config: watch: %w", err))
			}
		}
	}()

	return w, nil
}
