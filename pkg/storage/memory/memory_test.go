package memory

import (
	"context"
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
		Evidence:      map[string]string{"header": "Strict-Transport-Security"},
	}
}

func TestSaveFindingIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	finding := testFinding("f1", "p1", time.Now().UTC())
	require.NoError(t, s.SaveFinding(ctx, finding))

	finding.Severity = models.SeverityHigh
	require.NoError(t, s.SaveFinding(ctx, finding))

	findings, err := s.ListFindings(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityHigh, findings[0].Severity)
}

func TestFindingByIDNotFound(t *testing.T) {
	s := NewStorage()

	_, err := s.FindingByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrFindingNotFound)
}

func TestListFindingsFiltersByProjectAndSorts(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	base := time.Now().UTC()
	require.NoError(t, s.SaveFinding(ctx, testFinding("f2", "p1", base.Add(time.Second))))
	require.NoError(t, s.SaveFinding(ctx, testFinding("f1", "p1", base)))
	require.NoError(t, s.SaveFinding(ctx, testFinding("f3", "other", base)))

	findings, err := s.ListFindings(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "f1", findings[0].ID)
	assert.Equal(t, "f2", findings[1].ID)
}

func TestUpdateFindingStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	require.NoError(t, s.SaveFinding(ctx, testFinding("f1", "p1", time.Now().UTC())))
	require.NoError(t, s.UpdateFindingStatus(ctx, "f1", models.FindingStatusTriaged))

	finding, err := s.FindingByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.FindingStatusTriaged, finding.Status)
}

func TestUpdateFindingStatusRejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	require.NoError(t, s.SaveFinding(ctx, testFinding("f1", "p1", time.Now().UTC())))

	err := s.UpdateFindingStatus(ctx, "f1", models.FindingStatus("bogus"))
	assert.ErrorIs(t, err, storage.ErrInvalidFindingStatus)
}

func TestStoredFindingsAreIsolatedFromCallerMutation(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	finding := testFinding("f1", "p1", time.Now().UTC())
	require.NoError(t, s.SaveFinding(ctx, finding))

	finding.Evidence["header"] = "mutated"

	stored, err := s.FindingByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Strict-Transport-Security", stored.Evidence["header"])
}
