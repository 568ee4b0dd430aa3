package db

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"tracker/internal/logging"
)

// Collection names used for change notification and snapshot streaming.
const (
	CollectionPlayers = "players"
	CollectionMatches = "matches"
	CollectionMaps    = "maps"
	CollectionLive    = "liveMatch"
)

const channelPrefix = "tracker:changes:"

// Notifier publishes change notifications over Redis pub/sub. Consumers never
// receive deltas: a notification only says "this collection changed", and the
// subscriber re-reads the full snapshot from the store.
type Notifier struct {
	client *redis.Client
}

// NewNotifier builds a Redis-backed change notifier.
func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

// Publish announces that a collection changed. Failures are logged and
// swallowed: the write of record has already succeeded, and subscribers
// resync on their next snapshot read anyway.
func (n *Notifier) Publish(ctx context.Context, collection string) {
	if n == nil || n.client == nil {
		return
	}
	if err := n.client.Publish(ctx, channelPrefix+collection, collection).Err(); err != nil {
		logging.Logger().Warnf("change notification for %s failed: %v", collection, err)
	}
}

// Subscribe delivers the name of each changed collection until the context is
// canceled. The returned channel is closed on cancellation.
func (n *Notifier) Subscribe(ctx context.Context, collections ...string) <-chan string {
	channels := make([]string, len(collections))
	for i, c := range collections {
		channels[i] = channelPrefix + c
	}
	sub := n.client.Subscribe(ctx, channels...)

	out := make(chan string)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				collection := strings.TrimPrefix(msg.Channel, channelPrefix)
				select {
				case out <- collection:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
