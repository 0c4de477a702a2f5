// Package notify delivers order events to side-effect collaborators after a
// change has been committed.
package notify

import (
	"context"
	"errors"

	"github.com/bestdog-pos/api/internal/domain"
)

// Hook receives an order event. Hooks run synchronously after the change is
// committed; a failing hook is reported but never retried.
type Hook func(ctx context.Context, ev domain.OrderEvent) error

// Chain runs every non-nil hook in order and joins their errors. A failing
// hook does not stop the ones after it.
func Chain(hooks ...Hook) Hook {
	return func(ctx context.Context, ev domain.OrderEvent) error {
		var errs []error
		for _, h := range hooks {
			if h == nil {
				continue
			}
			if err := h(ctx, ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Only wraps h so it fires for the listed event types only.
func Only(h Hook, types ...string) Hook {
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(ctx context.Context, ev domain.OrderEvent) error {
		if !allowed[ev.Type] {
			return nil
		}
		return h(ctx, ev)
	}
}
