package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/probeflow/probeflow/pkg/channels/gochannel"
	"github.com/probeflow/probeflow/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards concurrent reads against the sink goroutine's writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestEmitterPublishesToSink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	var buf syncBuffer

	sink := NewJSONLSink(sub, &buf, log.WithModule("test"))
	require.NoError(t, sink.Run(ctx))

	emitter := NewEmitter(pub, log.WithModule("test"))

	err = emitter.Emit(ctx, &Event{
		Type:          SecurityViolationEvent,
		Plugin:        "detect.header_audit",
		PluginVersion: "1.2.0",
		Severity:      "high",
		Details:       map[string]any{"limit": "memory_mb"},
	})
	require.NoError(t, err)

	// BlockPublishUntilSubscriberAck makes delivery synchronous; the write
	// itself happens on the sink goroutine.
	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), string(SecurityViolationEvent))
	}, time.Second, 10*time.Millisecond)

	var event Event

	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "detect.header_audit", event.Plugin)
	assert.Equal(t, "high", event.Severity)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "memory_mb", event.Details["limit"])
}

func TestEmitterRejectsInvalidEvent(t *testing.T) {
	pub, _, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	emitter := NewEmitter(pub, log.WithModule("test"))

	assert.Error(t, emitter.Emit(context.Background(), &Event{Plugin: "x"}))
	assert.Error(t, emitter.Emit(context.Background(), &Event{Type: PluginLoadedEvent}))
}
