package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/probeflow/probeflow/pkg/audit"
	"github.com/probeflow/probeflow/pkg/channels/gochannel"
	"github.com/probeflow/probeflow/pkg/channels/kafka"
)

// NewAuditPipeline wires the audit emitter to its transport and, when a log
// path is given, starts a JSONL sink consuming the same stream. provider is
// "kafka" for a brokered stream or anything else for the in-process channel.
// The returned cleanup stops the sink and closes the emitter.
func NewAuditPipeline(
	ctx context.Context,
	logger *slog.Logger,
	provider string,
	auditLogPath string,
	serviceName string,
) (*audit.Emitter, func(), error) {
	wmLogger := watermill.NewSlogLogger(logger)

	var (
		publisher  message.Publisher
		subscriber message.Subscriber
		err        error
	)

	switch provider {
	case "kafka":
		publisher, subscriber, err = kafka.CreateChannel(wmLogger, serviceName)
	default:
		publisher, subscriber, err = gochannel.CreateChannel(wmLogger)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to create audit channel: %w", err)
	}

	emitter := audit.NewEmitter(publisher, logger)

	var out *os.File

	if auditLogPath != "" {
		out, err = os.OpenFile(auditLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit log %s: %w", auditLogPath, err)
		}

		sink := audit.NewJSONLSink(subscriber, out, logger)

		err = sink.Run(ctx)
		if err != nil {
			_ = out.Close()

			return nil, nil, fmt.Errorf("failed to start audit sink: %w", err)
		}
	}

	cleanup := func() {
		if err := emitter.Close(); err != nil {
			logger.Error("Failed to close audit emitter", "error", err)
		}

		if out != nil {
			_ = out.Close()
		}
	}

	return emitter, cleanup, nil
}
