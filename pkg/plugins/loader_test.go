package plugins

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/probeflow/probeflow/pkg/audit"
	"github.com/probeflow/probeflow/pkg/log"
	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/probeflow/probeflow/pkg/registry"
	"github.com/probeflow/probeflow/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher records published audit messages for assertions.
type capturePublisher struct {
	mu       sync.Mutex
	messages []*message.Message
}

func (p *capturePublisher) Publish(_ string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, messages...)

	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) eventsOfType(t audit.EventType) []*audit.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var events []*audit.Event

	for _, msg := range p.messages {
		var event audit.Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			continue
		}

		if event.Type == t {
			events = append(events, &event)
		}
	}

	return events
}

type stubPlugin struct {
	fn func(ctx context.Context, input protocol.ExecutionInput) (map[string]any, error)
}

func (p *stubPlugin) Execute(ctx context.Context, input protocol.ExecutionInput) (map[string]any, error) {
	return p.fn(ctx, input)
}

type stubFactory struct {
	id     string
	schema map[string]any
	fn     func(ctx context.Context, input protocol.ExecutionInput) (map[string]any, error)
}

func (f *stubFactory) Create(_ map[string]any) (protocol.Plugin, error) {
	return &stubPlugin{fn: f.fn}, nil
}

func (f *stubFactory) ID() string                      { return f.id }
func (f *stubFactory) Name() string                    { return f.id }
func (f *stubFactory) Description() string             { return "stub" }
func (f *stubFactory) Category() models.PluginCategory { return models.PluginCategoryDetector }
func (f *stubFactory) Schema() map[string]any          { return f.schema }

func newTestLoader(t *testing.T, manifestDir string) (*Loader, *registry.Registry, *capturePublisher) {
	t.Helper()

	logger := log.WithModule("test")
	reg := registry.NewRegistry(logger)
	publisher := &capturePublisher{}
	emitter := audit.NewEmitter(publisher, logger)
	loader := NewLoader(logger, reg, sandbox.New(logger), emitter, manifestDir)

	return loader, reg, publisher
}

func writeManifest(t *testing.T, dir, name string, manifest map[string]any) {
	t.Helper()

	raw, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o600))
}

func TestDiscoverVerifiesArtifactHash(t *testing.T) {
	dir := t.TempDir()

	artifact := filepath.Join(dir, "detector.bin")
	require.NoError(t, os.WriteFile(artifact, []byte("plugin artifact body"), 0o600))

	hash, err := ArtifactHash(artifact)
	require.NoError(t, err)

	writeManifest(t, dir, "good.json", map[string]any{
		"name":       "detect.stub",
		"version":    "1.0.0",
		"category":   "detector",
		"entrypoint": "detector.bin",
		"code_hash":  hash,
	})

	loader, _, publisher := newTestLoader(t, dir)

	discovered, err := loader.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, discovered, 1)
	assert.Equal(t, "detect.stub", discovered[0].Name)

	assert.Len(t, publisher.eventsOfType(audit.SignatureCheckEvent), 1)
	assert.Empty(t, publisher.eventsOfType(audit.SignatureCheckFailedEvent))
}

func TestDiscoverSkipsMalformedManifest(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o600))

	artifact := filepath.Join(dir, "detector.bin")
	require.NoError(t, os.WriteFile(artifact, []byte("body"), 0o600))

	hash, err := ArtifactHash(artifact)
	require.NoError(t, err)

	writeManifest(t, dir, "good.json", map[string]any{
		"name":       "detect.stub",
		"version":    "1.0.0",
		"category":   "detector",
		"entrypoint": "detector.bin",
		"code_hash":  hash,
	})

	loader, _, publisher := newTestLoader(t, dir)

	discovered, err := loader.Discover(context.Background())
	require.NoError(t, err)
	assert.Len(t, discovered, 1)
	assert.Len(t, publisher.eventsOfType(audit.ManifestRejectedEvent), 1)
}

func TestLoadBlockedOnHashMismatch(t *testing.T) {
	dir := t.TempDir()

	artifact := filepath.Join(dir, "detector.bin")
	require.NoError(t, os.WriteFile(artifact, []byte("tampered artifact"), 0o600))

	writeManifest(t, dir, "bad.json", map[string]any{
		"name":       "detect.stub",
		"version":    "1.0.0",
		"category":   "detector",
		"entrypoint": "detector.bin",
		"code_hash":  "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
	})

	loader, reg, publisher := newTestLoader(t, dir)
	reg.Register(&stubFactory{id: "detect.stub"})

	_, err := loader.Discover(context.Background())
	require.NoError(t, err)

	assert.Len(t, publisher.eventsOfType(audit.SignatureCheckFailedEvent), 1)

	_, err = loader.Load(context.Background(), "detect.stub")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSignatureVerificationFailed)
}

func TestLoadUnknownType(t *testing.T) {
	loader, _, _ := newTestLoader(t, "")

	_, err := loader.Load(context.Background(), "detect.missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestLoadBuiltinEmitsAuditEvent(t *testing.T) {
	loader, reg, publisher := newTestLoader(t, "")
	reg.Register(&stubFactory{id: "detect.stub"})

	handle, err := loader.Load(context.Background(), "detect.stub")
	require.NoError(t, err)
	assert.NotNil(t, handle.Factory)
	assert.Nil(t, handle.Manifest)
	assert.Len(t, publisher.eventsOfType(audit.PluginLoadedEvent), 1)
}

func TestExecuteValidatesConfigAgainstSchema(t *testing.T) {
	loader, reg, _ := newTestLoader(t, "")
	reg.Register(&stubFactory{
		id: "detect.stub",
		schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"target": map[string]any{"type": "string"}},
			"required":   []string{"target"},
		},
		fn: func(_ context.Context, _ protocol.ExecutionInput) (map[string]any, error) {
			return map[string]any{"findings": []map[string]any{}}, nil
		},
	})

	handle, err := loader.Load(context.Background(), "detect.stub")
	require.NoError(t, err)

	_, err = loader.Execute(context.Background(), handle,
		protocol.ExecutionInput{NodeID: "n1", Config: map[string]any{}},
		models.ResourceLimits{}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestExecuteSandboxViolationAuditedOnce(t *testing.T) {
	loader, reg, publisher := newTestLoader(t, "")
	reg.Register(&stubFactory{
		id: "detect.hog",
		fn: func(ctx context.Context, _ protocol.ExecutionInput) (map[string]any, error) {
			hold := make([][]byte, 0, 64)
			for i := 0; i < 64; i++ {
				chunk := make([]byte, 1024*1024)
				for j := range chunk {
					chunk[j] = byte(j)
				}

				hold = append(hold, chunk)
			}

			<-ctx.Done()

			return map[string]any{"hold": len(hold)}, ctx.Err()
		},
	})

	handle, err := loader.Load(context.Background(), "detect.hog")
	require.NoError(t, err)

	_, err = loader.Execute(context.Background(), handle,
		protocol.ExecutionInput{NodeID: "n1", RunID: "run-1"},
		models.ResourceLimits{MemoryMB: 1}, 5*time.Second)
	require.Error(t, err)

	violation, ok := sandbox.AsViolation(err)
	require.True(t, ok, "expected sandbox violation, got %v", err)
	assert.Equal(t, sandbox.LimitMemory, violation.Limit)

	events := publisher.eventsOfType(audit.SecurityViolationEvent)
	require.Len(t, events, 1)
	assert.Equal(t, "detect.hog", events[0].Plugin)
	assert.Equal(t, sandbox.LimitMemory, events[0].Details["limit"])
}

func TestExecuteSuccessAudited(t *testing.T) {
	loader, reg, publisher := newTestLoader(t, "")
	reg.Register(&stubFactory{
		id: "detect.stub",
		fn: func(_ context.Context, input protocol.ExecutionInput) (map[string]any, error) {
			return map[string]any{"findings": []map[string]any{{"title": "t"}}}, nil
		},
	})

	handle, err := loader.Load(context.Background(), "detect.stub")
	require.NoError(t, err)

	outputs, err := loader.Execute(context.Background(), handle,
		protocol.ExecutionInput{NodeID: "n1"}, models.ResourceLimits{}, time.Second)
	require.NoError(t, err)
	assert.Contains(t, outputs, "findings")
	assert.Len(t, publisher.eventsOfType(audit.PluginExecutedEvent), 1)
}
