// Package notify delivers mobile push notifications. Delivery is
// best-effort by contract: callers log failures and move on.
package notify

import "context"

type Notifier interface {
	SendCallNotification(ctx context.Context, pushToken, callerName, callID, channelName string) error
}

// Noop discards notifications. Used when no push gateway is configured
// (local development) and as a test default.
type Noop struct{}

func (Noop) SendCallNotification(context.Context, string, string, string, string) error {
	return nil
}
