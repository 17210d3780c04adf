package clock

import (
	"context"
	"time"
)

type SystemClock struct{}

func (SystemClock) Now(ctx context.Context) time.Time {
	if t, ok := FromContext(ctx); ok {
		return t
	}
	return time.Now().UTC()
}

type ctxKey struct{}

// WithNow pins the clock for the duration of a request. Used by tests and
// by accrual previews that need an explicit as-of instant.
func WithNow(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKey{}, t.UTC())
}

func FromContext(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(ctxKey{}).(time.Time)
	return t, ok
}
