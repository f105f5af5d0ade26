package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/storage"
)

func testFinding(id, projectID string, createdAt time.Time) *models.Finding {
	return &models.Finding{
		ID:            id,
		ProjectID:     projectID,
		DetectorID:    "detect.header_audit",
		Title:         "Missing HSTS header",
		Severity:      models.SeverityMedium,
		Resource:      "https://example.com",
		Status:        models.FindingStatusOpen,
		Fingerprint:   "fp-" + id,
		CreatedAt:     createdAt,
		SchemaVersion: models.FindingSchemaVersion,
	}
}

func TestSaveAndLoadFinding(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(t.TempDir())

	finding := testFinding("f1", "p1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, s.SaveFinding(ctx, finding))

	loaded, err := s.FindingByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, finding.Title, loaded.Title)
	assert.Equal(t, finding.Severity, loaded.Severity)
	assert.True(t, finding.CreatedAt.Equal(loaded.CreatedAt))
}

func TestSaveFindingWritesZSuffixedTimestamp(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewStorage(root)

	require.NoError(t, s.SaveFinding(ctx, testFinding("f1", "p1", time.Now().UTC())))

	data, err := os.ReadFile(filepath.Join(root, "findings", "f1.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	createdAt, ok := doc["created_at"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(createdAt, "Z"))
}

func TestFindingByIDNotFound(t *testing.T) {
	s := NewStorage(t.TempDir())

	_, err := s.FindingByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrFindingNotFound)
}

func TestListFindingsFiltersByProject(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(t.TempDir())

	base := time.Now().UTC()
	require.NoError(t, s.SaveFinding(ctx, testFinding("f1", "p1", base)))
	require.NoError(t, s.SaveFinding(ctx, testFinding("f2", "p1", base.Add(time.Second))))
	require.NoError(t, s.SaveFinding(ctx, testFinding("f3", "other", base)))

	findings, err := s.ListFindings(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "f1", findings[0].ID)
	assert.Equal(t, "f2", findings[1].ID)
}

func TestUpdateFindingStatusPersists(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(t.TempDir())

	require.NoError(t, s.SaveFinding(ctx, testFinding("f1", "p1", time.Now().UTC())))
	require.NoError(t, s.UpdateFindingStatus(ctx, "f1", models.FindingStatusResolved))

	loaded, err := s.FindingByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.FindingStatusResolved, loaded.Status)
}

func TestNewStorageStripsFileScheme(t *testing.T) {
	root := t.TempDir()
	s := NewStorage("file://" + root)

	assert.NoError(t, s.HealthCheck(context.Background()))
}
