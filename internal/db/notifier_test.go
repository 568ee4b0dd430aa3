package db

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSubscribeEndsOnCancel(t *testing.T) {
	// An unreachable address is fine here: teardown must not depend on the
	// broker ever delivering a message.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	n := NewNotifier(client)
	ctx, cancel := context.WithCancel(context.Background())
	changes := n.Subscribe(ctx, CollectionMatches, CollectionLive)

	cancel()

	select {
	case _, ok := <-changes:
		if ok {
			t.Fatal("got a message from a cancelled subscription")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel not closed after cancel")
	}
}

func TestPublishNilNotifier(t *testing.T) {
	var n *Notifier
	// Must be a silent no-op, not a panic.
	n.Publish(context.Background(), CollectionPlayers)
}
