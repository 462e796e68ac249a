package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smazurov/ffdrive/internal/logging"
)

// defaultDebounce covers editors that write a definitions file in several
// bursts before the content settles.
const defaultDebounce = 1500 * time.Millisecond

// Watcher reloads a definitions file whenever it changes on disk and
// hands the freshly loaded value to every registered handler. The file is
// re-read through the loader on each change, so handlers never see a
// cached snapshot. The job supervisor uses this to pick up jobs.toml
// edits without a restart.
type Watcher[T any] struct {
	path     string
	loader   func(path string) (T, error)
	debounce time.Duration
	onError  func(error)
	logger   logging.Logger

	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(T)

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce overrides how long changes must settle before a reload.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler registers a callback for loader failures. Without it a
// bad file edit is only logged and the previous value stays in effect.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// NewConfigWatcher creates a watcher for the file at path. The loader is
// invoked on every settled change; its result fans out to the handlers.
func NewConfigWatcher[T any](
	path string,
	loader func(path string) (T, error),
	logger logging.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	if logger == nil {
		logger = logging.GetLogger("config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher[T]{
		path:     path,
		loader:   loader,
		debounce: defaultDebounce,
		logger:   logger,
		handlers: make(map[int]func(T)),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler for reloaded values. The returned function
// unregisters it again.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.handlers, id)
		w.mu.Unlock()
	}
}

// Start begins watching the file. The watch loop runs until Stop.
func (w *Watcher[T]) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	w.logger.Info("Watching definitions file", "path", w.path, "debounce", w.debounce)
	go w.run()
	return nil
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *Watcher[T]) Stop() error {
	w.cancel()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher[T]) run() {
	var settle *time.Timer
	var settled <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Writes are the usual edit; creates cover editors that
			// replace the file wholesale.
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("Definitions file changed", "op", ev.Op.String())
			if settle != nil {
				settle.Stop()
			}
			settle = time.NewTimer(w.debounce)
			settled = settle.C

		case <-settled:
			settled = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Definitions watch error", "error", err)
		}
	}
}

// reload re-reads the file and fans the result out. Every handler gets
// the same value from one loader call.
func (w *Watcher[T]) reload() {
	value, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload definitions", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.RLock()
	handlers := make([]func(T), 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}
	w.mu.RUnlock()

	w.logger.Info("Definitions reloaded", "path", w.path, "handlers", len(handlers))
	for _, h := range handlers {
		h(value)
	}
}
