// Package storage provides the data storage abstraction layer for findings.
package storage

import (
	"context"

	"github.com/probeflow/probeflow/pkg/models"
)

// Storage persists normalized findings. SaveFinding is an upsert keyed by
// finding ID, so re-normalizing the same run never duplicates records.
type Storage interface {
	SaveFinding(ctx context.Context, finding *models.Finding) error
	FindingByID(ctx context.Context, id string) (*models.Finding, error)
	ListFindings(ctx context.Context, projectID string) ([]*models.Finding, error)
	UpdateFindingStatus(ctx context.Context, id string, status models.FindingStatus) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
