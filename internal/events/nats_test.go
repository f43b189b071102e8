package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/narwhalmedia/docconvert/internal/events"
)

type MockJetStream struct {
	mock.Mock
}

func (m *MockJetStream) Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(ctx, subject, payload, len(opts))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jetstream.PubAck), args.Error(1)
}

func TestNATSPublisher_Publish(t *testing.T) {
	js := new(MockJetStream)
	publisher := events.NewNATSPublisherWithJetStream(js, "docconvert", zaptest.NewLogger(t))
	event := events.NewCompleted("report.docx", "docx", "pdf", "vendor", "https://host/out.pdf", time.Second)

	js.On("Publish", mock.Anything, "docconvert.conversion.completed", mock.MatchedBy(func(payload []byte) bool {
		var decoded events.ConversionEvent
		return json.Unmarshal(payload, &decoded) == nil && decoded.ID == event.ID
	}), 1).Return(&jetstream.PubAck{Stream: "DOCCONVERT", Sequence: 1}, nil)

	require.NoError(t, publisher.Publish(context.Background(), event))
	js.AssertExpectations(t)
	assert.NoError(t, publisher.Close())
}

func TestNATSPublisher_Subject(t *testing.T) {
	publisher := events.NewNATSPublisherWithJetStream(new(MockJetStream), "conversions", nil)

	assert.Equal(t, "conversions.conversion.failed", publisher.Subject(events.EventConversionFailed))
}

func TestNATSPublisher_PublishFails(t *testing.T) {
	js := new(MockJetStream)
	publisher := events.NewNATSPublisherWithJetStream(js, "docconvert", nil)
	js.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("no responders"))

	err := publisher.Publish(context.Background(),
		events.NewCompleted("report.docx", "docx", "pdf", "vendor", "https://host/out.pdf", time.Second))

	assert.ErrorContains(t, err, "no responders")
}

func TestNATSPublisher_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Skip if NATS is not available
	publisher, err := events.NewNATSPublisher(ctx, events.NATSConfig{
		URL:           "nats://localhost:4222",
		SubjectPrefix: "docconvert-test",
		Stream:        "DOCCONVERT_TEST",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Skip("NATS not available:", err)
	}
	defer publisher.Close()

	err = publisher.Publish(ctx, events.NewCompleted("report.docx", "docx", "pdf", "vendor", "https://host/out.pdf", time.Second))
	require.NoError(t, err)
}

func TestEmit_LogsFailures(t *testing.T) {
	js := new(MockJetStream)
	js.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("stream not found"))
	core, logs := observer.New(zap.WarnLevel)

	events.Emit(context.Background(), events.NewNATSPublisherWithJetStream(js, "docconvert", nil),
		events.NewCompleted("report.docx", "docx", "pdf", "vendor", "https://host/out.pdf", time.Second),
		zap.New(core))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to publish conversion event", logs.All()[0].Message)
}

func TestNoopPublisher(t *testing.T) {
	var publisher events.Publisher = events.NewNoopPublisher()

	assert.NoError(t, publisher.Publish(context.Background(), nil))
	assert.NoError(t, publisher.Close())
}
