package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Emitter publishes audit events to the audit topic. Emission failures are
// surfaced to the caller; security events are never dropped silently.
type Emitter struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewEmitter(publisher message.Publisher, logger *slog.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger.With("module", "audit"),
	}
}

// Emit validates, stamps and publishes one audit event.
func (e *Emitter) Emit(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if event.ID == "" {
		event.ID = watermill.NewUUID()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if event.Severity == "" {
		event.Severity = "info"
	}

	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to marshal audit event", "error", err, "type", event.Type)

		return err
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set(EventTypeMetadataKey, string(event.Type))
	msg.Metadata.Set(PluginMetadataKey, event.Plugin)

	if err := e.publisher.Publish(Topic, msg); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish audit event", "error", err, "type", event.Type)

		return err
	}

	e.logger.DebugContext(ctx, "Published audit event",
		"type", event.Type,
		"plugin", event.Plugin,
		"severity", event.Severity)

	return nil
}

func (e *Emitter) Close() error {
	return e.publisher.Close()
}
