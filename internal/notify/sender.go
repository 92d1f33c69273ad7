// Package notify formats fill and wallet notifications and delivers them to
// messaging channels under a shared rate limit with bounded retry.
package notify

import "context"

// Message is one outgoing notification. An empty ChatID addresses the
// sender's default destination.
type Message struct {
	ChatID string
	Text   string
}

// Sender is the interface that each notification channel must implement.
// Send reports throttling as *domain.ThrottleError, network failures as
// *domain.TransportError and any other non-2xx response as *domain.APIError.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}
