package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// OrderNumberGenerator hands out human-facing order numbers.
type OrderNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// OrderNumberFunc adapts a function to OrderNumberGenerator.
type OrderNumberFunc func(ctx context.Context) (string, error)

func (f OrderNumberFunc) Next(ctx context.Context) (string, error) {
	return f(ctx)
}

// ClockOrderNumbers derives a six digit number from the millisecond clock.
// Within one generator every call moves past the last value handed out, so a
// retry in the same millisecond draws a new number. Other processes, or a
// thousand seconds of wraparound, can still collide; callers rely on the
// unique index and retry.
func ClockOrderNumbers(clock func() time.Time) OrderNumberGenerator {
	if clock == nil {
		clock = time.Now
	}
	var (
		mu   sync.Mutex
		last int64
	)
	return OrderNumberFunc(func(context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		ms := clock().UnixMilli()
		if ms <= last {
			ms = last + 1
		}
		last = ms
		return fmt.Sprintf("%06d", ms%1_000_000), nil
	})
}
