package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const natsPublishTimeout = 5 * time.Second

// JetStreamPublisher is the subset of JetStream used to publish events
type JetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSConfig configures the NATS publisher
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Stream        string
}

// NATSPublisher publishes events to JetStream subjects <prefix>.<type>
type NATSPublisher struct {
	js     JetStreamPublisher
	prefix string
	logger *zap.Logger
	close  func()
}

// NewNATSPublisher connects to NATS and ensures the events stream exists
func NewNATSPublisher(ctx context.Context, cfg NATSConfig, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("nats")

	opts := []nats.Option{
		nats.Name("docconvert"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream := jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Stream for document conversion outcomes",
		Subjects:    []string{cfg.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Replicas:    1,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
	}
	if _, err := js.CreateOrUpdateStream(ctx, stream); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.Stream, err)
	}

	p := NewNATSPublisherWithJetStream(js, cfg.SubjectPrefix, logger)
	p.close = func() {
		if err := nc.Drain(); err != nil {
			logger.Error("failed to drain NATS connection", zap.Error(err))
		}
	}

	logger.Debug("NATS publisher initialized",
		zap.String("url", cfg.URL),
		zap.String("stream", cfg.Stream),
	)
	return p, nil
}

// NewNATSPublisherWithJetStream creates a publisher over an existing JetStream handle
func NewNATSPublisherWithJetStream(js JetStreamPublisher, prefix string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{
		js:     js,
		prefix: prefix,
		logger: logger.Named("publisher"),
	}
}

// Subject returns the subject an event type is published on
func (p *NATSPublisher) Subject(eventType EventType) string {
	return fmt.Sprintf("%s.%s", p.prefix, eventType)
}

// Publish publishes the event with its id as the deduplication key
func (p *NATSPublisher) Publish(ctx context.Context, event *ConversionEvent) error {
	subject := p.Subject(event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, natsPublishTimeout)
	defer cancel()

	ack, err := p.js.Publish(pubCtx, subject, data, jetstream.WithMsgID(event.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("event_id", event.ID.String()),
		zap.String("subject", subject),
		zap.Uint64("sequence", ack.Sequence),
		zap.String("stream", ack.Stream),
	)
	return nil
}

// Close drains the connection
func (p *NATSPublisher) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
