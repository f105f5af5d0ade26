package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/storage/memory"
	"github.com/probeflow/probeflow/pkg/testutil"
)

func newTestApp(t *testing.T) (*fiber.App, *memory.Storage) {
	t.Helper()

	store := memory.NewStorage()
	handlers := NewAPIHandlers(store)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	app.Get("/projects/:projectId/findings", handlers.GetFindings)
	app.Get("/findings/:id", handlers.GetFinding)
	app.Patch("/findings/:id/status", handlers.UpdateFindingStatus)

	return app, store
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetFindingsFiltersBySeverity(t *testing.T) {
	app, store := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFinding(ctx, testutil.CreateTestFinding(
		testutil.WithProject("p1"), testutil.WithSeverity(models.SeverityHigh),
	)))
	require.NoError(t, store.SaveFinding(ctx, testutil.CreateTestFinding(
		testutil.WithProject("p1"), testutil.WithSeverity(models.SeverityLow),
	)))

	resp, err := app.Test(httptest.NewRequest("GET", "/projects/p1/findings?severity=high", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Findings   []*models.Finding `json:"findings"`
		TotalCount int               `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))

	require.Equal(t, 1, payload.TotalCount)
	assert.Equal(t, models.SeverityHigh, payload.Findings[0].Severity)
}

func TestGetFindingNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/findings/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, "finding_not_found", problem["type"])
}

func TestUpdateFindingStatus(t *testing.T) {
	app, store := newTestApp(t)

	finding := testutil.CreateTestFinding()
	require.NoError(t, store.SaveFinding(context.Background(), finding))

	req := httptest.NewRequest("PATCH", "/findings/"+finding.ID+"/status",
		strings.NewReader(`{"status":"triaged"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	updated, err := store.FindingByID(context.Background(), finding.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FindingStatusTriaged, updated.Status)
}

func TestUpdateFindingStatusRejectsUnknown(t *testing.T) {
	app, store := newTestApp(t)

	finding := testutil.CreateTestFinding()
	require.NoError(t, store.SaveFinding(context.Background(), finding))

	req := httptest.NewRequest("PATCH", "/findings/"+finding.ID+"/status",
		strings.NewReader(`{"status":"bogus"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
