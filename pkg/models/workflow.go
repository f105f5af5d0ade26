// Package models defines the core domain models for DAG-based scan orchestration.
package models

// WorkflowSpec is a named, versioned DAG of scan nodes. A spec is parsed once
// from its YAML/JSON document and never mutated by a run; per-run state lives
// in ExecutionContext.
type WorkflowSpec struct {
	ID          string       `json:"id"          yaml:"id"          validate:"required"`
	Name        string       `json:"name"        yaml:"name"        validate:"required,min=3"`
	Description string       `json:"description" yaml:"description"`
	Project     string       `json:"project,omitempty" yaml:"project,omitempty"`
	Nodes       []*NodeSpec  `json:"nodes"       yaml:"nodes"       validate:"required,min=1,dive"`
	Retry       RetryPolicy  `json:"retry"       yaml:"retry"`
	State       StateConfig  `json:"state"       yaml:"state"`
}

// NodeSpec is one DAG vertex. Requires and Outputs carry dataset names, the
// only values that move between nodes. Retries and RetryBackoffS are pointers
// so that an explicit zero overrides the workflow retry policy while an
// absent field inherits it.
type NodeSpec struct {
	ID            string          `json:"id"                        yaml:"id"                        validate:"required"`
	Type          string          `json:"type"                      yaml:"type"                      validate:"required"`
	Config        map[string]any  `json:"config,omitempty"          yaml:"config,omitempty"`
	Requires      []string        `json:"requires,omitempty"        yaml:"requires,omitempty"`
	Outputs       []string        `json:"outputs,omitempty"         yaml:"outputs,omitempty"`
	TimeoutS      int             `json:"timeout_s,omitempty"       yaml:"timeout_s,omitempty"       validate:"gte=0"`
	Retries       *int            `json:"retries,omitempty"         yaml:"retries,omitempty"         validate:"omitempty,gte=0"`
	RetryBackoffS *float64        `json:"retry_backoff_s,omitempty" yaml:"retry_backoff_s,omitempty" validate:"omitempty,gte=0"`
	Limits        *ResourceLimits `json:"limits,omitempty"          yaml:"limits,omitempty"`
}

// RetryPolicy is the workflow-level retry block. Node-level Retries and
// RetryBackoffS take precedence when set.
type RetryPolicy struct {
	MaxAttempts   int     `json:"max_attempts"   yaml:"max_attempts"   validate:"gte=0"`
	BackoffFactor float64 `json:"backoff_factor" yaml:"backoff_factor" validate:"gte=0"`
	BaseDelayS    float64 `json:"base_delay"     yaml:"base_delay"     validate:"gte=0"`
}

// StateConfig controls checkpointing behaviour of a run.
type StateConfig struct {
	CheckpointInterval int  `json:"checkpoint_interval,omitempty" yaml:"checkpoint_interval,omitempty"`
	ResumeOnFailure    bool `json:"resume_on_failure,omitempty"   yaml:"resume_on_failure,omitempty"`
}

// ResourceLimits bounds one sandboxed node execution. Zero values mean the
// sandbox default for that limit.
type ResourceLimits struct {
	MemoryMB       int    `json:"memory_limit_mb,omitempty" yaml:"memory_limit_mb,omitempty"`
	CPUSeconds     int    `json:"cpu_limit_s,omitempty"     yaml:"cpu_limit_s,omitempty"`
	FilesystemMode string `json:"filesystem,omitempty"      yaml:"filesystem,omitempty"      validate:"omitempty,oneof=read-only temp-dir denied"`
	NetworkAllowed bool   `json:"network,omitempty"         yaml:"network,omitempty"`
}

// Filesystem access modes enforced by the sandbox.
const (
	FilesystemReadOnly = "read-only"
	FilesystemTempDir  = "temp-dir"
	FilesystemDenied   = "denied"
)

// NodeStatus defines the states of one node within a run.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusRetrying  NodeStatus = "retrying"
	NodeStatusSucceeded NodeStatus = "succeeded"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusBlocked   NodeStatus = "blocked"
)

// Terminal reports whether the status is a terminal node state.
func (s NodeStatus) Terminal() bool {
	return s == NodeStatusSucceeded || s == NodeStatusFailed || s == NodeStatusBlocked
}

// RunStatus is the aggregate status of one workflow run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusPartial   RunStatus = "partial_failure"
	RunStatusFailed    RunStatus = "failed"
)

// Node looks up a node spec by id.
func (w *WorkflowSpec) Node(id string) (*NodeSpec, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return nil, false
}

// ProjectID returns the project scope for findings produced by this spec,
// falling back to the spec id when no project is set.
func (w *WorkflowSpec) ProjectID() string {
	if w.Project != "" {
		return w.Project
	}

	return w.ID
}
