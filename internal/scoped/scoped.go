// Package scoped provides acquire/use/release for handles that must be freed
// on every exit path: database result sets, broker connections and channels.
package scoped

import (
	"context"
	"errors"
	"fmt"
)

// Release frees a resource returned by an Acquire function.
type Release func() error

// Acquire opens a resource and returns the function that frees it.
type Acquire[T any] func(ctx context.Context) (T, Release, error)

// Use acquires a resource, hands it to fn and releases it afterwards, also
// when fn fails or panics. A release failure is joined to fn's error.
func Use[T any](ctx context.Context, acquire Acquire[T], fn func(ctx context.Context, resource T) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if acquire == nil {
		return fmt.Errorf("acquire function is required")
	}
	if fn == nil {
		return fmt.Errorf("use function is required")
	}

	resource, release, err := acquire(ctx)
	if err != nil {
		return err
	}

	if release != nil {
		defer func() {
			if releaseErr := release(); releaseErr != nil {
				err = errors.Join(err, fmt.Errorf("release failed: %w", releaseErr))
			}
		}()
	}

	return fn(ctx, resource)
}
