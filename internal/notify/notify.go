// Package notify relays contact-form messages to the operator through an
// external push service. The core only cares whether delivery succeeded.
package notify

import "context"

type Notifier interface {
	Push(ctx context.Context, contact, message string) error
}

// Noop discards every push. Used when no provider is configured.
type Noop struct{}

func (Noop) Push(ctx context.Context, contact, message string) error {
	return nil
}
