package wrappers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeflow/probeflow/pkg/protocol"
)

func TestRunCommandCapturesOutput(t *testing.T) {
	raw, err := RunCommand(context.Background(), "sh", "-c", `echo out; echo err >&2`)
	require.NoError(t, err)

	assert.Equal(t, 0, raw.ExitCode)
	assert.Equal(t, "out\n", string(raw.Stdout))
	assert.Equal(t, "err\n", string(raw.Stderr))
	assert.False(t, raw.TimedOut)
}

func TestRunCommandNonZeroExitIsNotAnError(t *testing.T) {
	raw, err := RunCommand(context.Background(), "sh", "-c", "exit 3")
	require.NoError(t, err)

	assert.Equal(t, 3, raw.ExitCode)
}

func TestRunCommandKillsOnTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	raw, err := RunCommand(ctx, "sleep", "10")
	require.NoError(t, err)

	assert.True(t, raw.TimedOut)
	assert.Less(t, time.Since(start), 5*time.Second, "process must be killed, not waited for")
}

func TestRunCommandMissingBinary(t *testing.T) {
	_, err := RunCommand(context.Background(), "definitely-not-a-real-binary-xyz")
	assert.Error(t, err)
}

type stubWrapper struct {
	prepareErr error
	raw        *protocol.RawOutput
	result     *protocol.ParseResult
}

func (s *stubWrapper) Prepare(_ map[string]any) error { return s.prepareErr }

func (s *stubWrapper) Run(_ context.Context) (*protocol.RawOutput, error) { return s.raw, nil }

func (s *stubWrapper) ParseOutput(_ *protocol.RawOutput) (*protocol.ParseResult, error) {
	return s.result, nil
}

func TestPluginPackagesParsedRecords(t *testing.T) {
	stub := &stubWrapper{
		raw: &protocol.RawOutput{ExitCode: 1},
		result: &protocol.ParseResult{
			Records: []map[string]any{{"title": "x"}},
			Skipped: 2,
		},
	}

	p := NewPlugin(slog.Default(), func() protocol.ToolWrapper { return stub })

	outputs, err := p.Execute(context.Background(), protocol.ExecutionInput{NodeID: "n1"})
	require.NoError(t, err)

	assert.Len(t, outputs[protocol.OutputFindings], 1)
	assert.Equal(t, 2, outputs[OutputSkipped])
	assert.Equal(t, 1, outputs[OutputExitCode])
}

func TestPluginFailsFastOnPrepareError(t *testing.T) {
	stub := &stubWrapper{prepareErr: assert.AnError}

	p := NewPlugin(slog.Default(), func() protocol.ToolWrapper { return stub })

	_, err := p.Execute(context.Background(), protocol.ExecutionInput{})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
