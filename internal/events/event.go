package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType names a conversion outcome
type EventType string

const (
	EventConversionCompleted EventType = "conversion.completed"
	EventConversionFailed    EventType = "conversion.failed"
)

// ConversionEvent records the outcome of one conversion
type ConversionEvent struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	Type         EventType `json:"type" yaml:"type"`
	File         string    `json:"file" yaml:"file"`
	InputFormat  string    `json:"input_format" yaml:"input_format"`
	OutputFormat string    `json:"output_format" yaml:"output_format"`
	Transport    string    `json:"transport" yaml:"transport"`
	ResultURL    string    `json:"result_url,omitempty" yaml:"result_url,omitempty"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType    string    `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Stage        string    `json:"stage,omitempty" yaml:"stage,omitempty"`
	Duration     string    `json:"duration" yaml:"duration"`
	OccurredAt   time.Time `json:"occurred_at" yaml:"occurred_at"`
}

// NewCompleted creates a completed event
func NewCompleted(file, inputFormat, outputFormat, transport, resultURL string, took time.Duration) *ConversionEvent {
	return &ConversionEvent{
		ID:           uuid.New(),
		Type:         EventConversionCompleted,
		File:         file,
		InputFormat:  inputFormat,
		OutputFormat: outputFormat,
		Transport:    transport,
		ResultURL:    resultURL,
		Duration:     took.String(),
		OccurredAt:   time.Now().UTC(),
	}
}

// NewFailed creates a failed event. errorType and stage may be empty for
// errors outside the conversion taxonomy.
func NewFailed(file, inputFormat, outputFormat, transport string, err error, errorType, stage string, took time.Duration) *ConversionEvent {
	return &ConversionEvent{
		ID:           uuid.New(),
		Type:         EventConversionFailed,
		File:         file,
		InputFormat:  inputFormat,
		OutputFormat: outputFormat,
		Transport:    transport,
		Error:        err.Error(),
		ErrorType:    errorType,
		Stage:        stage,
		Duration:     took.String(),
		OccurredAt:   time.Now().UTC(),
	}
}

// Publisher delivers conversion events
type Publisher interface {
	Publish(ctx context.Context, event *ConversionEvent) error
	Close() error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that does nothing
func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) Publish(context.Context, *ConversionEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

// Emit publishes event and logs a failure instead of returning it, so that a
// broken event sink never changes a conversion's outcome.
func Emit(ctx context.Context, publisher Publisher, event *ConversionEvent, logger *zap.Logger) {
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish conversion event",
			zap.Error(err),
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
		)
	}
}
