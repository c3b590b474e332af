package notify

import "context"

// Message is a notification addressed to one user.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Notifier delivers user-facing notifications. Implementations are swappable
// so tests and local environments never reach a real mail provider.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
