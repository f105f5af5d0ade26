package models

// ExecutionContext is the mutable per-run state: the inter-node data bus and
// the status of every node. It is owned exclusively by the executor for the
// duration of one run and never shared across runs.
type ExecutionContext struct {
	RunID      string                `json:"run_id"`
	WorkflowID string                `json:"workflow_id"`
	ProjectID  string                `json:"project_id"`
	Datasets   map[string]any        `json:"datasets,omitempty"`
	Statuses   map[string]NodeStatus `json:"statuses,omitempty"`
	Metadata   map[string]any        `json:"metadata,omitempty"`
}

// NewExecutionContext seeds a fresh context with every node pending and the
// seed inputs preloaded on the data bus.
func NewExecutionContext(runID string, spec *WorkflowSpec, seeds map[string]any) *ExecutionContext {
	ec := &ExecutionContext{
		RunID:      runID,
		WorkflowID: spec.ID,
		ProjectID:  spec.ProjectID(),
		Datasets:   make(map[string]any, len(seeds)),
		Statuses:   make(map[string]NodeStatus, len(spec.Nodes)),
		Metadata:   make(map[string]any),
	}

	for name, value := range seeds {
		ec.Datasets[name] = value
	}

	for _, node := range spec.Nodes {
		ec.Statuses[node.ID] = NodeStatusPending
	}

	return ec
}
