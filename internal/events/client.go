package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/MikeSquared-Agency/Gridiron/internal/store"
)

// Client announces population snapshot changes.
type Client interface {
	PublishIngested(ctx context.Context, snap *store.Snapshot, ingestedBy string) error
	PublishDeleted(ctx context.Context, id uuid.UUID) error
	Close()
}

// NATSClient publishes to the GRIDIRON_EVENTS JetStream stream. When the stream
// cannot be created it degrades to core NATS publishes.
type NATSClient struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	streamed bool
	logger   *slog.Logger
}

func NewNATSClient(ctx context.Context, url string, logger *slog.Logger) (*NATSClient, error) {
	nc, err := nats.Connect(url,
		nats.Name("gridiron"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	c := &NATSClient{conn: nc, js: js, logger: logger}
	if err := c.ensureStream(ctx); err != nil {
		logger.Warn("population stream unavailable, using core publish", "stream", StreamName, "error", err)
	} else {
		c.streamed = true
	}
	return c, nil
}

func (c *NATSClient) ensureStream(ctx context.Context) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectPopulationWildcard},
		MaxAge:     StreamMaxAge,
		Duplicates: DuplicateWindow,
	})
	return err
}

func (c *NATSClient) PublishIngested(ctx context.Context, snap *store.Snapshot, ingestedBy string) error {
	ev := NewPopulationIngested(snap, ingestedBy, time.Now())
	return c.publish(ctx, SubjectPopulationIngested(ev.SnapshotID), ingestedMsgID(snap), ev)
}

func (c *NATSClient) PublishDeleted(ctx context.Context, id uuid.UUID) error {
	ev := NewPopulationDeleted(id, time.Now())
	return c.publish(ctx, SubjectPopulationDeleted(ev.SnapshotID), ev.SnapshotID+":deleted", ev)
}

func (c *NATSClient) publish(ctx context.Context, subject, msgID string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if !c.streamed {
		return c.conn.Publish(subject, payload)
	}
	ack, err := c.js.Publish(ctx, subject, payload, jetstream.WithMsgID(msgID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if ack.Duplicate {
		c.logger.Debug("duplicate population event dropped", "subject", subject, "msg_id", msgID)
	}
	return nil
}

func (c *NATSClient) Close() {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
