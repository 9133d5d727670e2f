package console

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned to a load whose result arrived after a newer load started.
// Callers drop it silently.
var ErrSuperseded = errors.New("superseded by a newer request")

// Latest runs loads where only the most recent one may deliver a result.
type Latest[T any] struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Load cancels any in-flight load and runs fn. If another Load starts before fn
// returns, this call returns ErrSuperseded regardless of fn's outcome.
func (l *Latest[T]) Load(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	v, err := fn(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		var zero T
		return zero, ErrSuperseded
	}
	l.cancel = nil
	cancel()
	return v, err
}
