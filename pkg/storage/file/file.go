// Package file provides file-based storage implementation for findings.
// Each finding is one JSON document under <root>/findings/.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/storage"
)

const findingsDir = "findings"

// Storage implements the storage.Storage interface using the file system.
type Storage struct {
	root string
}

// NewStorage creates a new file storage rooted at the given directory. The
// root may carry a file:// prefix, matching database URL conventions.
func NewStorage(root string) *Storage {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Storage{root: cleanRoot}
}

// SaveFinding writes the finding as a JSON document, replacing any existing
// document with the same ID.
func (s *Storage) SaveFinding(_ context.Context, finding *models.Finding) error {
	dir := filepath.Join(s.root, findingsDir)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return storage.NewFindingError("Save", finding.ID, err)
	}

	data, err := json.MarshalIndent(finding, "", "  ")
	if err != nil {
		return storage.NewFindingError("Save", finding.ID, err)
	}

	err = os.WriteFile(s.findingPath(finding.ID), data, 0o644)
	if err != nil {
		return storage.NewFindingError("Save", finding.ID, err)
	}

	return nil
}

// FindingByID reads one finding document by ID.
func (s *Storage) FindingByID(_ context.Context, id string) (*models.Finding, error) {
	data, err := os.ReadFile(s.findingPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.NewFindingError("ByID", id, storage.ErrFindingNotFound)
		}

		return nil, storage.NewFindingError("ByID", id, err)
	}

	var finding models.Finding

	err = json.Unmarshal(data, &finding)
	if err != nil {
		return nil, storage.NewFindingError("ByID", id, err)
	}

	return &finding, nil
}

// ListFindings loads all finding documents and returns those belonging to
// the project, ordered by creation time.
func (s *Storage) ListFindings(ctx context.Context, projectID string) ([]*models.Finding, error) {
	root := os.DirFS(filepath.Join(s.root, findingsDir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list finding files: %w", err)
	}

	findings := make([]*models.Finding, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := strings.TrimSuffix(file, ".json")

		finding, err := s.FindingByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load finding %s: %w", id, err)
		}

		if finding.ProjectID == projectID {
			findings = append(findings, finding)
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

// UpdateFindingStatus rewrites a finding document with its new status.
func (s *Storage) UpdateFindingStatus(ctx context.Context, id string, status models.FindingStatus) error {
	if !models.ValidFindingStatus(status) {
		return storage.NewFindingError("UpdateStatus", id, storage.ErrInvalidFindingStatus)
	}

	finding, err := s.FindingByID(ctx, id)
	if err != nil {
		return err
	}

	finding.Status = status

	return s.SaveFinding(ctx, finding)
}

// HealthCheck verifies the root directory exists.
func (s *Storage) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based storage, there is
// nothing to clean up.
func (s *Storage) Close(_ context.Context) error {
	return nil
}

func (s *Storage) findingPath(id string) string {
	return filepath.Join(s.root, findingsDir, id+".json")
}
