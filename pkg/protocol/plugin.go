// Package protocol defines the interfaces and contracts for pluggable
// detectors, enrichers, analytics and tool wrappers.
package protocol

import (
	"context"

	"github.com/probeflow/probeflow/pkg/models"
)

// OutputFindings is the conventional output key under which a plugin returns
// raw finding records for normalization.
const OutputFindings = "findings"

// Env is the sandbox environment handed to a plugin execution. Plugins must
// honor the declared access modes; the sandbox terminates executions that
// exceed the resource ceilings.
type Env struct {
	TempDir        string
	FilesystemMode string
	NetworkAllowed bool
}

// ExecutionInput carries everything one plugin execution is allowed to see.
// Plugins never write into the run's dataset bus directly; they return their
// outputs and the executor publishes them.
type ExecutionInput struct {
	NodeID    string
	RunID     string
	ProjectID string
	Inputs    map[string]any
	Config    map[string]any
	Env       Env
}

// Plugin is one executable unit of detection, enrichment or analytics work.
// Execute returns a map keyed by the node's declared output dataset names.
// Implementations must return promptly once ctx is cancelled.
type Plugin interface {
	Execute(ctx context.Context, input ExecutionInput) (map[string]any, error)
}

// PluginFactory creates plugin instances and provides metadata about the
// plugin type.
type PluginFactory interface {
	// Create creates a new plugin instance with the given configuration.
	Create(config map[string]any) (Plugin, error)

	// ID returns the node-type identifier this factory serves, e.g. "scan.nuclei".
	ID() string

	// Name returns the human-readable name for this plugin type.
	Name() string

	// Description returns a description of what this plugin does.
	Description() string

	// Category returns whether this plugin detects, enriches or analyzes.
	Category() models.PluginCategory

	// Schema returns the JSON schema for configuring this plugin.
	Schema() map[string]any
}
