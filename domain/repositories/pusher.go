package repositories

import "context"

// Pusher delivers one payload to a connected client. Delivery is fire-and-forget:
// no acknowledgement beyond the returned error, no retry.
type Pusher interface {
	PostToConnection(ctx context.Context, connectionID string, payload []byte) error
}
