package kv

import (
	"context"
	"sync"
)

// Writer applies Set and Remove calls to a Store on a background goroutine,
// in submission order. Failures go to the error callback; callers never wait.
type Writer struct {
	store Store
	onErr func(key string, err error)

	mu      sync.Mutex
	pending []op
	wake    chan struct{}
	idle    *sync.Cond
	busy    bool
	closed  bool
	stopped chan struct{}
}

type op struct {
	key    string
	value  []byte
	remove bool
}

// NewWriter starts a writer for store. onErr may be nil.
func NewWriter(store Store, onErr func(key string, err error)) *Writer {
	w := &Writer{
		store:   store,
		onErr:   onErr,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	w.idle = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// Set queues a write of value under key. The value is copied.
func (w *Writer) Set(key string, value []byte) {
	w.enqueue(op{key: key, value: append([]byte(nil), value...)})
}

// Remove queues a delete of key.
func (w *Writer) Remove(key string) {
	w.enqueue(op{key: key, remove: true})
}

func (w *Writer) enqueue(o op) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = append(w.pending, o)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every queued operation has been applied or ctx ends.
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.mu.Lock()
		for len(w.pending) > 0 || w.busy {
			w.idle.Wait()
		}
		w.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, applies what is queued and stops the goroutine.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.stopped
}

func (w *Writer) run() {
	defer close(w.stopped)
	for {
		w.mu.Lock()
		batch := w.pending
		w.pending = nil
		closed := w.closed
		w.busy = len(batch) > 0
		w.mu.Unlock()

		for _, o := range batch {
			var err error
			if o.remove {
				err = w.store.Remove(o.key)
			} else {
				err = w.store.Set(o.key, o.value)
			}
			if err != nil && w.onErr != nil {
				w.onErr(o.key, err)
			}
		}

		w.mu.Lock()
		w.busy = false
		empty := len(w.pending) == 0
		if empty {
			w.idle.Broadcast()
		}
		w.mu.Unlock()

		if len(batch) > 0 && !empty {
			continue
		}
		if closed && empty {
			return
		}
		if len(batch) > 0 {
			continue
		}
		<-w.wake
	}
}
