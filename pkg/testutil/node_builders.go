// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/probeflow/probeflow/pkg/models"
)

// CreateTestNode creates a test NodeSpec with default values that can be
// overridden. The first argument pair fixes the identity; everything else is
// optional.
func CreateTestNode(id, nodeType string, overrides ...func(*models.NodeSpec)) *models.NodeSpec {
	node := &models.NodeSpec{
		ID:     id,
		Type:   nodeType,
		Config: map[string]any{},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Config = config
	}
}

// WithRequires sets the datasets the node consumes.
func WithRequires(datasets ...string) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Requires = datasets
	}
}

// WithOutputs sets the datasets the node produces.
func WithOutputs(datasets ...string) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Outputs = datasets
	}
}

// WithRetries sets the node retry budget. An explicit zero disables retries
// regardless of the workflow retry policy.
func WithRetries(retries int) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Retries = &retries
	}
}

// WithRetryBackoff sets the node base retry backoff in seconds.
func WithRetryBackoff(seconds float64) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.RetryBackoffS = &seconds
	}
}

// WithTimeout sets the node execution timeout in seconds.
func WithTimeout(seconds int) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.TimeoutS = seconds
	}
}

// WithLimits sets the node resource limits.
func WithLimits(limits models.ResourceLimits) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Limits = &limits
	}
}

// CreateTestSpec creates a workflow spec around the given nodes.
func CreateTestSpec(nodes ...*models.NodeSpec) *models.WorkflowSpec {
	return &models.WorkflowSpec{
		ID:          uuid.New().String(),
		Name:        "Test Workflow",
		Description: "A workflow for testing",
		Nodes:       nodes,
	}
}

// CreateTestFinding creates a valid finding with default values that can be
// overridden.
func CreateTestFinding(overrides ...func(*models.Finding)) *models.Finding {
	finding := &models.Finding{
		ID:            uuid.New().String(),
		ProjectID:     "test-project",
		RunID:         "run-00000000",
		DetectorID:    "detect.test",
		Title:         "Test Finding",
		Severity:      models.SeverityLow,
		Resource:      "https://example.com",
		Status:        models.FindingStatusOpen,
		Fingerprint:   uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
		SchemaVersion: models.FindingSchemaVersion,
	}

	for _, override := range overrides {
		override(finding)
	}

	return finding
}

// WithSeverity sets the finding severity.
func WithSeverity(severity models.Severity) func(*models.Finding) {
	return func(f *models.Finding) {
		f.Severity = severity
	}
}

// WithProject sets the finding project scope.
func WithProject(projectID string) func(*models.Finding) {
	return func(f *models.Finding) {
		f.ProjectID = projectID
	}
}
