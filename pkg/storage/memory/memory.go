// Package memory provides an in-memory storage implementation for findings,
// used for tests and single-shot runs that do not need durability.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/storage"
)

// Storage implements the storage.Storage interface with an in-process map.
type Storage struct {
	mu       sync.RWMutex
	findings map[string]*models.Finding
}

// NewStorage creates a new in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		findings: make(map[string]*models.Finding),
	}
}

// SaveFinding stores a copy of the finding, replacing any record with the
// same ID.
func (s *Storage) SaveFinding(_ context.Context, finding *models.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneFinding(finding)
	s.findings[finding.ID] = stored

	return nil
}

// FindingByID returns a copy of the finding with the given ID.
func (s *Storage) FindingByID(_ context.Context, id string) (*models.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	finding, ok := s.findings[id]
	if !ok {
		return nil, storage.NewFindingError("ByID", id, storage.ErrFindingNotFound)
	}

	return cloneFinding(finding), nil
}

// ListFindings returns all findings of a project ordered by creation time,
// ties broken by ID for deterministic output.
func (s *Storage) ListFindings(_ context.Context, projectID string) ([]*models.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	findings := make([]*models.Finding, 0)

	for _, finding := range s.findings {
		if finding.ProjectID == projectID {
			findings = append(findings, cloneFinding(finding))
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].CreatedAt.Equal(findings[j].CreatedAt) {
			return findings[i].ID < findings[j].ID
		}

		return findings[i].CreatedAt.Before(findings[j].CreatedAt)
	})

	return findings, nil
}

// UpdateFindingStatus transitions the triage status of a finding. Status is
// the only mutable field on a stored finding.
func (s *Storage) UpdateFindingStatus(_ context.Context, id string, status models.FindingStatus) error {
	if !models.ValidFindingStatus(status) {
		return storage.NewFindingError("UpdateStatus", id, storage.ErrInvalidFindingStatus)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	finding, ok := s.findings[id]
	if !ok {
		return storage.NewFindingError("UpdateStatus", id, storage.ErrFindingNotFound)
	}

	finding.Status = status

	return nil
}

// HealthCheck always succeeds for in-memory storage.
func (s *Storage) HealthCheck(_ context.Context) error {
	return nil
}

// Close discards all stored findings.
func (s *Storage) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findings = make(map[string]*models.Finding)

	return nil
}

func cloneFinding(finding *models.Finding) *models.Finding {
	clone := *finding

	if finding.Evidence != nil {
		clone.Evidence = make(map[string]string, len(finding.Evidence))
		for k, v := range finding.Evidence {
			clone.Evidence[k] = v
		}
	}

	clone.CVEs = append([]string(nil), finding.CVEs...)
	clone.Techniques = append([]string(nil), finding.Techniques...)

	return &clone
}
