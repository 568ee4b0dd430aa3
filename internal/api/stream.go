package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"tracker/internal/db"
	"tracker/internal/logging"
)

var streamCollections = []string{
	db.CollectionPlayers,
	db.CollectionMatches,
	db.CollectionMaps,
	db.CollectionLive,
}

// StreamChanges pushes collection snapshots over SSE. On every change
// notification the full collection is re-read and sent as one event, so a
// client that misses a message is healed by the next one. An optional
// collection query parameter narrows the stream to one collection.
func (h *Handler) StreamChanges(c *fiber.Ctx) error {
	collections := streamCollections
	if wanted := c.Query("collection"); wanted != "" {
		if !containsString(streamCollections, wanted) {
			return badRequest(c, "unknown collection")
		}
		collections = []string{wanted}
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The request context only ends on server shutdown. Client disconnects
		// surface as flush errors, so the subscription must be torn down
		// explicitly on every return path or its goroutine outlives the client.
		ctx, cancel := context.WithCancel(c.Context())
		defer cancel()

		changes := h.notifier.Subscribe(ctx, collections...)

		keepalive := time.NewTicker(25 * time.Second)
		defer keepalive.Stop()

		// Prime the client with the current state of every streamed collection.
		for _, collection := range collections {
			if err := h.writeSnapshot(ctx, w, collection); err != nil {
				return
			}
		}
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case collection, ok := <-changes:
				if !ok {
					return
				}
				if err := h.writeSnapshot(ctx, w, collection); err != nil {
					logging.Logger().Warnf("snapshot for %s failed: %v", collection, err)
					continue
				}
				if err := w.Flush(); err != nil {
					// Client disconnected.
					return
				}

			case <-keepalive.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *Handler) writeSnapshot(ctx context.Context, w *bufio.Writer, collection string) error {
	var (
		data any
		err  error
	)
	switch collection {
	case db.CollectionPlayers:
		data, err = h.store.ListPlayers(ctx)
	case db.CollectionMatches:
		data, err = h.store.ListMatches(ctx, db.MatchFilter{})
	case db.CollectionMaps:
		data, err = h.store.ListMaps(ctx)
	case db.CollectionLive:
		data, err = h.store.ActiveMatch(ctx)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", collection, payload)
	return err
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
