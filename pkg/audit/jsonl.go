package audit

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// JSONLSink consumes the audit topic and appends one JSON line per event to
// the configured writer. It is the reference sink for the audit emission
// contract; external observability collaborators consume the same stream.
type JSONLSink struct {
	subscriber message.Subscriber
	out        io.Writer
	logger     *slog.Logger
	mu         sync.Mutex
}

func NewJSONLSink(subscriber message.Subscriber, out io.Writer, logger *slog.Logger) *JSONLSink {
	return &JSONLSink{
		subscriber: subscriber,
		out:        out,
		logger:     logger.With("module", "audit-jsonl"),
	}
}

// Run subscribes to the audit topic and writes events until ctx is cancelled.
func (s *JSONLSink) Run(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			if err := s.write(msg.Payload); err != nil {
				s.logger.Error("Failed to write audit event", "error", err, "message_id", msg.UUID)
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (s *JSONLSink) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.out.Write(payload); err != nil {
		return err
	}

	_, err := s.out.Write([]byte("\n"))

	return err
}
