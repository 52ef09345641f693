package port

import "context"

// Notifier delivers outbound email. Delivery is best-effort.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}
