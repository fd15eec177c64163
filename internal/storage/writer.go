package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Writer applies Set and Remove calls to a KV on a background goroutine.
// Callers never wait on the store; pending writes to the same key coalesce
// so the most recent call wins. Failures are logged and dropped.
type Writer struct {
	kv      KV
	log     *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*string // nil value means remove
	order   []string

	wake  chan struct{}
	flush chan chan struct{}
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewWriter starts a Writer for kv.
func NewWriter(kv KV, log *slog.Logger) *Writer {
	w := &Writer{
		kv:      kv,
		log:     log,
		timeout: 5 * time.Second,
		pending: make(map[string]*string),
		wake:    make(chan struct{}, 1),
		flush:   make(chan chan struct{}),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Set queues key=value.
func (w *Writer) Set(key, value string) {
	w.enqueue(key, &value)
}

// Remove queues deletion of key.
func (w *Writer) Remove(key string) {
	w.enqueue(key, nil)
}

// Flush blocks until every write queued before the call has been applied.
func (w *Writer) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case w.flush <- ack:
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close applies outstanding writes and stops the goroutine.
func (w *Writer) Close() {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()
}

func (w *Writer) enqueue(key string, value *string) {
	w.mu.Lock()
	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = value
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.wake:
			w.drain()
		case ack := <-w.flush:
			w.drain()
			close(ack)
		case <-w.done:
			w.drain()
			return
		}
	}
}

func (w *Writer) drain() {
	w.mu.Lock()
	pending, order := w.pending, w.order
	w.pending = make(map[string]*string)
	w.order = nil
	w.mu.Unlock()

	for _, key := range order {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		var err error
		if value := pending[key]; value != nil {
			err = w.kv.Set(ctx, key, *value)
		} else {
			err = w.kv.Remove(ctx, key)
		}
		cancel()
		if err != nil {
			w.log.Warn("persisting state failed", "key", key, "error", err)
		}
	}
}
