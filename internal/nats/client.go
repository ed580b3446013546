package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/forkful/recommender/internal/config"
)

// DuplicateWindow is how long JetStream remembers a message ID. A handler
// retry for the same request inside this window is stored once.
const DuplicateWindow = 2 * time.Minute

// Client holds the connection that recommendation events travel over.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewClient connects and creates or updates the events stream. Connection
// loss after startup is retried in the background and surfaces through
// Check.
func NewClient(ctx context.Context, cfg config.NATSConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("recommender"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats: disconnected, events will fail until reconnect", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats: reconnected", "url", nc.ConnectedUrlRedacted())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, eventsStream(cfg))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensuring stream %s: %w", StreamEvents, err)
	}

	info := stream.CachedInfo()
	slog.Info("connected to NATS", "url", cfg.URL, "stream", info.Config.Name, "messages", info.State.Msgs)
	return &Client{conn: nc, js: js}, nil
}

// eventsStream keeps every recs.events.* subject on disk for the
// configured age.
func eventsStream(cfg config.NATSConfig) jetstream.StreamConfig {
	maxAge := cfg.StreamMaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	return jetstream.StreamConfig{
		Name:       StreamEvents,
		Subjects:   []string{SubjectAllEvents},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     maxAge,
		Storage:    jetstream.FileStorage,
		Duplicates: DuplicateWindow,
	}
}

func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

func (c *Client) Healthy() bool {
	return c.conn.IsConnected()
}

// Check satisfies the readiness probe.
func (c *Client) Check(_ context.Context) error {
	if !c.Healthy() {
		return fmt.Errorf("nats: connection status %s", c.conn.Status())
	}
	return nil
}

// Close flushes pending publishes before closing.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		slog.Warn("nats: draining connection", "error", err)
	}
}
