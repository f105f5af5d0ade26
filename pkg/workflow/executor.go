package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/normalize"
	"github.com/probeflow/probeflow/pkg/otelhelper"
	"github.com/probeflow/probeflow/pkg/plugins"
	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/probeflow/probeflow/pkg/sandbox"
	"github.com/probeflow/probeflow/pkg/storage"
)

const defaultBackoffFactor = 2.0

// NodeExecution is the per-node outcome of one run.
type NodeExecution struct {
	NodeID     string            `json:"node_id"`
	Status     models.NodeStatus `json:"status"`
	Attempts   int               `json:"attempts"`
	DurationMs int64             `json:"duration_ms"`
	Findings   int               `json:"findings,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// ExecutionResult is the aggregate outcome of one workflow run.
type ExecutionResult struct {
	RunID      string           `json:"run_id"`
	WorkflowID string           `json:"workflow_id"`
	ProjectID  string           `json:"project_id"`
	Status     models.RunStatus `json:"status"`
	Nodes      []NodeExecution  `json:"nodes"`

	Context *models.ExecutionContext `json:"-"`
}

// Executor runs workflow DAGs node by node in deterministic topological
// order. A node failure never aborts the run: its transitive dependents are
// blocked and every independent branch still executes.
type Executor struct {
	logger *slog.Logger
	loader *plugins.Loader
	store  storage.Storage
	tracer trace.Tracer

	sleep func(time.Duration)
}

// NewExecutor creates a workflow executor. store may be nil when findings
// should not be persisted; tracer may be nil to disable tracing.
func NewExecutor(logger *slog.Logger, loader *plugins.Loader, store storage.Storage, tracer trace.Tracer) *Executor {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("probeflow")
	}

	return &Executor{
		logger: logger.With("module", "workflow_executor"),
		loader: loader,
		store:  store,
		tracer: tracer,
		sleep:  time.Sleep,
	}
}

// Execute validates the spec and runs it to completion with the given seed
// datasets. The returned result carries a terminal status for every node.
func (e *Executor) Execute(ctx context.Context, spec *models.WorkflowSpec, seeds map[string]any) (*ExecutionResult, error) {
	seedNames := make([]string, 0, len(seeds))
	for name := range seeds {
		seedNames = append(seedNames, name)
	}

	validation := NewValidator(e.loader).Validate(spec, seedNames)
	if !validation.Valid() {
		return nil, fmt.Errorf("workflow %s is invalid: %w", spec.ID, validation)
	}

	runID := generateRunID()
	execCtx := models.NewExecutionContext(runID, spec, seeds)
	normalizer := normalize.New(e.logger, execCtx.ProjectID, runID)

	logger := e.logger.With("workflow_id", spec.ID, "run_id", runID)
	logger.Info("Starting workflow run", "nodes", len(spec.Nodes))

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, spec.ID),
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.String(otelhelper.ProjectIDKey, execCtx.ProjectID),
	)
	defer span.End()

	order, _ := topologicalOrder(spec)

	result := &ExecutionResult{
		RunID:      runID,
		WorkflowID: spec.ID,
		ProjectID:  execCtx.ProjectID,
		Nodes:      make([]NodeExecution, 0, len(order)),
		Context:    execCtx,
	}

	for _, node := range order {
		if execCtx.Statuses[node.ID] == models.NodeStatusBlocked {
			logger.Warn("Skipping blocked node", "node_id", node.ID)
			result.Nodes = append(result.Nodes, NodeExecution{
				NodeID: node.ID,
				Status: models.NodeStatusBlocked,
			})

			continue
		}

		execution := e.runNode(ctx, logger, spec, node, execCtx, normalizer)
		result.Nodes = append(result.Nodes, execution)

		if execution.Status == models.NodeStatusFailed {
			e.blockDependents(logger, spec, node.ID, execCtx)
		}
	}

	result.Status = aggregateStatus(result.Nodes)

	logger.Info("Workflow run completed", "status", result.Status)
	span.SetAttributes(attribute.String("probeflow.run.status", string(result.Status)))

	return result, nil
}

// runNode executes one node with its retry budget. Each attempt gets a fresh
// sandboxed execution; the backoff between attempts grows by the workflow's
// backoff factor every retry.
func (e *Executor) runNode(
	ctx context.Context,
	logger *slog.Logger,
	spec *models.WorkflowSpec,
	node *models.NodeSpec,
	execCtx *models.ExecutionContext,
	normalizer *normalize.Normalizer,
) NodeExecution {
	execution := NodeExecution{NodeID: node.ID}
	nodeLogger := logger.With("node_id", node.ID, "node_type", node.Type)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	started := time.Now()

	handle, err := e.loader.Load(ctx, node.Type)
	if err != nil {
		nodeLogger.Error("Failed to load plugin for node", "error", err)
		otelhelper.SetError(span, err)

		execution.Status = models.NodeStatusFailed
		execution.Error = err.Error()
		execCtx.Statuses[node.ID] = models.NodeStatusFailed

		return execution
	}

	retries, baseBackoff, factor := e.retryBudget(spec, node)
	maxAttempts := retries + 1
	timeout := nodeTimeout(node)

	var (
		outputs map[string]any
		count   int
		runErr  error
	)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(baseBackoff, factor, attempt-1)
			nodeLogger.Info("Retrying node", "attempt", attempt+1, "delay", delay)
			execCtx.Statuses[node.ID] = models.NodeStatusRetrying
			e.sleep(delay)
		}

		execCtx.Statuses[node.ID] = models.NodeStatusRunning
		execution.Attempts = attempt + 1
		span.SetAttributes(attribute.Int(otelhelper.NodeAttemptKey, execution.Attempts))

		input := protocol.ExecutionInput{
			NodeID:    node.ID,
			RunID:     execCtx.RunID,
			ProjectID: execCtx.ProjectID,
			Inputs:    gatherInputs(node, execCtx),
			Config:    node.Config,
		}

		outputs, runErr = e.loader.Execute(ctx, handle, input, limitsOf(node), timeout)
		if runErr == nil {
			// Normalization is part of the attempt: a record that cannot be
			// mapped to a canonical finding fails the attempt like any tool
			// error. Persistence is idempotent, so re-running it on a later
			// attempt converges on the same stored findings.
			count, runErr = e.persistFindings(ctx, node, outputs, normalizer)
		}

		if runErr == nil {
			break
		}

		nodeLogger.Warn("Node attempt failed", "attempt", attempt+1, "error", runErr)
	}

	execution.DurationMs = time.Since(started).Milliseconds()

	if runErr != nil {
		nodeLogger.Error("Node failed after all attempts", "attempts", execution.Attempts, "error", runErr)
		otelhelper.SetError(span, runErr)

		execution.Status = models.NodeStatusFailed
		execution.Error = runErr.Error()
		execCtx.Statuses[node.ID] = models.NodeStatusFailed

		return execution
	}

	// Outputs reach the dataset bus only after the whole attempt, normalization
	// included, has succeeded. A failed node leaves its datasets unresolved.
	for _, name := range node.Outputs {
		value, ok := outputs[name]
		if !ok {
			nodeLogger.Warn("Node did not produce a declared output", "dataset", name)
			continue
		}

		execCtx.Datasets[name] = value
	}

	execution.Findings = count
	execution.Status = models.NodeStatusSucceeded
	execCtx.Statuses[node.ID] = models.NodeStatusSucceeded

	span.SetAttributes(attribute.Int(otelhelper.FindingCountKey, count))
	nodeLogger.Info("Node succeeded", "attempts", execution.Attempts, "findings", count)

	return execution
}

// persistFindings normalizes raw finding records emitted under the findings
// output and upserts them through storage. Re-running identical records is
// idempotent: the normalizer resolves them to the same canonical findings.
func (e *Executor) persistFindings(
	ctx context.Context,
	node *models.NodeSpec,
	outputs map[string]any,
	normalizer *normalize.Normalizer,
) (int, error) {
	records := findingRecords(outputs[protocol.OutputFindings])
	if len(records) == 0 {
		return 0, nil
	}

	findings, err := normalizer.Normalize(node.Type, records)
	if err != nil {
		return 0, err
	}

	if e.store != nil {
		for _, finding := range findings {
			err := e.store.SaveFinding(ctx, finding)
			if err != nil {
				return 0, err
			}
		}
	}

	return len(findings), nil
}

func (e *Executor) blockDependents(logger *slog.Logger, spec *models.WorkflowSpec, nodeID string, execCtx *models.ExecutionContext) {
	for dependent := range transitiveDependents(spec, nodeID) {
		if !execCtx.Statuses[dependent].Terminal() {
			logger.Warn("Blocking downstream node", "node_id", dependent, "failed_dependency", nodeID)
			execCtx.Statuses[dependent] = models.NodeStatusBlocked
		}
	}
}

// retryBudget resolves the effective retry count, base backoff and backoff
// factor for one node. Node-level settings take precedence over the workflow
// policy; an explicit node-level zero disables retries even when the policy
// sets max_attempts.
func (e *Executor) retryBudget(spec *models.WorkflowSpec, node *models.NodeSpec) (int, float64, float64) {
	retries := spec.Retry.MaxAttempts
	if node.Retries != nil {
		retries = *node.Retries
	}

	backoff := spec.Retry.BaseDelayS
	if node.RetryBackoffS != nil {
		backoff = *node.RetryBackoffS
	}

	factor := spec.Retry.BackoffFactor
	if factor <= 0 {
		factor = defaultBackoffFactor
	}

	return retries, backoff, factor
}

// backoffDelay returns the wait before retry number attempt (zero-based),
// growing by factor per attempt from the base.
func backoffDelay(baseSeconds, factor float64, attempt int) time.Duration {
	if baseSeconds <= 0 {
		return 0
	}

	seconds := baseSeconds * math.Pow(factor, float64(attempt))

	return time.Duration(seconds * float64(time.Second))
}

func nodeTimeout(node *models.NodeSpec) time.Duration {
	if node.TimeoutS > 0 {
		return time.Duration(node.TimeoutS) * time.Second
	}

	return sandbox.DefaultTimeout
}

func limitsOf(node *models.NodeSpec) models.ResourceLimits {
	if node.Limits == nil {
		return models.ResourceLimits{}
	}

	return *node.Limits
}

func gatherInputs(node *models.NodeSpec, execCtx *models.ExecutionContext) map[string]any {
	inputs := make(map[string]any, len(node.Requires))

	for _, required := range node.Requires {
		if value, ok := execCtx.Datasets[required]; ok {
			inputs[required] = value
		}
	}

	return inputs
}

func findingRecords(value any) []map[string]any {
	switch records := value.(type) {
	case []map[string]any:
		return records
	case []any:
		out := make([]map[string]any, 0, len(records))
		for _, record := range records {
			if m, ok := record.(map[string]any); ok {
				out = append(out, m)
			}
		}

		return out
	}

	return nil
}

func aggregateStatus(nodes []NodeExecution) models.RunStatus {
	succeeded := 0

	for _, node := range nodes {
		if node.Status == models.NodeStatusSucceeded {
			succeeded++
		}
	}

	switch {
	case succeeded == len(nodes):
		return models.RunStatusSucceeded
	case succeeded == 0:
		return models.RunStatusFailed
	default:
		return models.RunStatusPartial
	}
}

// generateRunID generates a unique run ID.
func generateRunID() string {
	return fmt.Sprintf("run-%s", uuid.New().String()[:8])
}
