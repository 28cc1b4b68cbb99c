package http

import "context"

// limiter hands out a fixed number of connection slots. A nil limiter
// admits everything.
type limiter struct {
	slots chan struct{}
}

func newLimiter(size int) *limiter {
	if size <= 0 {
		return nil
	}

	return &limiter{
		slots: make(chan struct{}, size),
	}
}

// acquire blocks until a slot is free or ctx is done.
func (l *limiter) acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limiter) release() {
	if l == nil {
		return
	}
	<-l.slots
}

func (l *limiter) inUse() int {
	if l == nil {
		return 0
	}
	return len(l.slots)
}
