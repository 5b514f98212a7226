package account

import (
	"context"
	"sync"
)

// once runs fn at most once and hands the same outcome, value or error, to
// every caller. fn runs under the lifetime context given at construction,
// so a caller giving up does not abort the computation for the others.
type once[T any] struct {
	lifetime context.Context
	fn       func(context.Context) (T, error)

	start sync.Once
	done  chan struct{}
	value T
	err   error
}

func newOnce[T any](lifetime context.Context, fn func(context.Context) (T, error)) *once[T] {
	return &once[T]{
		lifetime: lifetime,
		fn:       fn,
		done:     make(chan struct{}),
	}
}

// Get starts the computation on first use and waits for its outcome or for
// ctx to end, whichever comes first.
func (o *once[T]) Get(ctx context.Context) (T, error) {
	o.start.Do(func() {
		go func() {
			defer close(o.done)
			o.value, o.err = o.fn(o.lifetime)
		}()
	})

	select {
	case <-o.done:
		return o.value, o.err
	default:
	}

	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Resolved reports whether the computation has finished
func (o *once[T]) Resolved() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}
