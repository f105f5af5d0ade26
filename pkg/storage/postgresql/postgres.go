// Package postgresql provides PostgreSQL storage implementation for findings.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // database/sql driver

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/storage/sqlbase"
)

// Storage implements the storage layer for PostgreSQL.
type Storage struct {
	db          *sql.DB
	logger      *slog.Logger
	findingRepo *sqlbase.FindingRepository
}

// NewStorage creates a new PostgreSQL storage layer and runs migrations.
func NewStorage(ctx context.Context, logger *slog.Logger, databaseURL string) (*Storage, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Storage{
		db:          database,
		logger:      logger,
		findingRepo: sqlbase.NewFindingRepository(database, logger),
	}, nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS findings (
				id TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				run_id TEXT,
				fingerprint TEXT NOT NULL,
				severity TEXT NOT NULL,
				status TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				data JSONB NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_findings_project ON findings (project_id);
			CREATE INDEX IF NOT EXISTS idx_findings_fingerprint ON findings (fingerprint);
		`,
	}
}

// SaveFinding upserts a finding keyed by ID.
func (s *Storage) SaveFinding(ctx context.Context, finding *models.Finding) error {
	return s.findingRepo.Save(ctx, finding)
}

// FindingByID returns a finding by its ID.
func (s *Storage) FindingByID(ctx context.Context, id string) (*models.Finding, error) {
	return s.findingRepo.ByID(ctx, id)
}

// ListFindings returns all findings of a project.
func (s *Storage) ListFindings(ctx context.Context, projectID string) ([]*models.Finding, error) {
	return s.findingRepo.ListByProject(ctx, projectID)
}

// UpdateFindingStatus transitions the triage status of a finding.
func (s *Storage) UpdateFindingStatus(ctx context.Context, id string, status models.FindingStatus) error {
	return s.findingRepo.UpdateStatus(ctx, id, status)
}

// HealthCheck verifies the database connection is healthy.
func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Storage) Close(_ context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
