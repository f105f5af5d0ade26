package wrappers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/probeflow/probeflow/pkg/protocol"
)

// Output keys every wrapper plugin produces alongside its findings.
const (
	OutputSkipped  = "skipped"
	OutputExitCode = "exit_code"
)

// Plugin adapts a ToolWrapper to the plugin execution contract so external
// tools and native plugins run through the same executor path. A fresh
// wrapper is built per execution; wrappers carry per-invocation state and
// must not be shared across nodes.
type Plugin struct {
	logger     *slog.Logger
	newWrapper func() protocol.ToolWrapper
}

// NewPlugin creates a plugin backed by the given wrapper constructor.
func NewPlugin(logger *slog.Logger, newWrapper func() protocol.ToolWrapper) *Plugin {
	return &Plugin{logger: logger, newWrapper: newWrapper}
}

// Execute drives the wrapper through its three phases and packages the
// parsed records under the findings output key.
func (p *Plugin) Execute(ctx context.Context, input protocol.ExecutionInput) (map[string]any, error) {
	wrapper := p.newWrapper()

	err := wrapper.Prepare(input.Config)
	if err != nil {
		return nil, fmt.Errorf("prepare failed: %w", err)
	}

	raw, err := wrapper.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}

	result, err := wrapper.ParseOutput(raw)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	if result.Skipped > 0 {
		p.logger.Warn("Skipped malformed output records",
			"node_id", input.NodeID,
			"skipped", result.Skipped)
	}

	return map[string]any{
		protocol.OutputFindings: result.Records,
		OutputSkipped:           result.Skipped,
		OutputExitCode:          raw.ExitCode,
	}, nil
}
