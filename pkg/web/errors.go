package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/probeflow/probeflow/pkg/storage"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleStorageError provides typed error handling for storage layer errors.
func handleStorageError(c fiber.Ctx, err error) error {
	switch {
	case storage.IsFindingNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("finding_not_found").
			WithDetail("finding not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, storage.ErrInvalidFindingStatus):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("invalid_status").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	default:
		return internalError(c, err)
	}
}
