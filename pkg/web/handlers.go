// Package web provides HTTP handlers and REST API endpoints for findings.
package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/storage"
)

type APIHandlers struct {
	store storage.Storage
}

func NewAPIHandlers(store storage.Storage) *APIHandlers {
	return &APIHandlers{store: store}
}

// GetFindings lists the findings of one project, optionally filtered by
// severity and status.
func (h *APIHandlers) GetFindings(c fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return badRequest(c, "project id is required")
	}

	findings, err := h.store.ListFindings(c.Context(), projectID)
	if err != nil {
		return handleStorageError(c, err)
	}

	severity := c.Query("severity")
	status := c.Query("status")

	filtered := make([]*models.Finding, 0, len(findings))

	for _, finding := range findings {
		if severity != "" && string(finding.Severity) != severity {
			continue
		}

		if status != "" && string(finding.Status) != status {
			continue
		}

		filtered = append(filtered, finding)
	}

	return c.JSON(fiber.Map{
		"findings":    filtered,
		"total_count": len(filtered),
	})
}

// GetFinding returns one finding by id.
func (h *APIHandlers) GetFinding(c fiber.Ctx) error {
	finding, err := h.store.FindingByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(finding)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateFindingStatus transitions the triage status of a finding, the only
// mutation the API exposes.
func (h *APIHandlers) UpdateFindingStatus(c fiber.Ctx) error {
	var req updateStatusRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	status := models.FindingStatus(req.Status)
	if !models.ValidFindingStatus(status) {
		return badRequest(c, "unknown status: "+req.Status)
	}

	id := c.Params("id")

	if err := h.store.UpdateFindingStatus(c.Context(), id, status); err != nil {
		return handleStorageError(c, err)
	}

	finding, err := h.store.FindingByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(finding)
}

// HealthCheck reports storage health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.store.HealthCheck(c.Context()); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
