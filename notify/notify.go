// Package notify fans realtime events out to websockets, other instances and
// browser push.
package notify

import (
	"context"

	"heartmatch/services"
)

// Fanout delivers every event to each of its notifiers in order.
type Fanout []services.Notifier

func (f Fanout) Notify(ctx context.Context, userID string, event string, payload any) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, userID, event, payload)
		}
	}
}
