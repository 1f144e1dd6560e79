package task

import (
	"context"
	"sync/atomic"
)

// Token is a cooperative cancellation token. Workers check it only at safe
// points, between files.
type Token struct {
	ctx       context.Context
	cancel    context.CancelFunc
	requested atomic.Bool
}

// NewToken returns a token bound to parent.
func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel requests cancellation. Safe to call many times and from any goroutine.
func (t *Token) Cancel() {
	t.requested.Store(true)
	t.cancel()
}

// Cancelled reports, without blocking, whether cancellation was requested
// through the token or its parent context.
func (t *Token) Cancelled() bool {
	return t.requested.Load() || t.ctx.Err() != nil
}

// Context returns the context carried by the token.
func (t *Token) Context() context.Context { return t.ctx }

// Release frees the resources of the token once the worker is done.
func (t *Token) Release() { t.cancel() }
