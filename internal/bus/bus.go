// Package bus carries change notifications from writers to the broadcast hub.
//
// A notification only says "topic X changed"; consumers re-read state instead of trusting
// the payload. Delivery is at most once: a notification published while no subscriber is
// connected is lost.
package bus

import "context"

type Notification struct {
	Topic   string
	Payload string
}

type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// Subscriber delivers notifications for topics, in bus order per topic, on the returned
// channel until ctx is done. The channel is closed when delivery stops.
type Subscriber interface {
	Subscribe(ctx context.Context, topics ...string) (<-chan Notification, error)
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// Payloads used by in-tree publishers. Listeners ignore them.
const (
	PayloadUpdated = "updated"
	PayloadCleared = "cleared"
	PayloadResync  = "resync"
)
