package sqlbase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/storage"
)

// FindingRepository implements finding persistence on top of database/sql.
// It is shared by the SQLite and PostgreSQL drivers, both of which accept
// $N placeholders and ON CONFLICT upserts; only the migrations differ.
type FindingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFindingRepository creates a new SQL-backed finding repository.
func NewFindingRepository(db *sql.DB, logger *slog.Logger) *FindingRepository {
	return &FindingRepository{db: db, logger: logger}
}

// Save upserts a finding, keyed by ID. The full record is stored as a JSON
// document; queryable columns are kept in sync with it.
func (r *FindingRepository) Save(ctx context.Context, finding *models.Finding) error {
	data, err := json.Marshal(finding)
	if err != nil {
		return storage.NewFindingError("Save", finding.ID, err)
	}

	query := `
		INSERT INTO findings (id, project_id, run_id, fingerprint, severity, status, created_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			severity = EXCLUDED.severity,
			status = EXCLUDED.status,
			data = EXCLUDED.data
	`

	_, err = r.db.ExecContext(ctx, query,
		finding.ID,
		finding.ProjectID,
		finding.RunID,
		finding.Fingerprint,
		string(finding.Severity),
		string(finding.Status),
		finding.CreatedAt,
		string(data),
	)
	if err != nil {
		return storage.NewFindingError("Save", finding.ID, err)
	}

	return nil
}

// ByID returns one finding by its ID.
func (r *FindingRepository) ByID(ctx context.Context, id string) (*models.Finding, error) {
	var data string

	err := r.db.QueryRowContext(ctx, "SELECT data FROM findings WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NewFindingError("ByID", id, storage.ErrFindingNotFound)
	}

	if err != nil {
		return nil, storage.NewFindingError("ByID", id, err)
	}

	return unmarshalFinding(id, data)
}

// ListByProject returns all findings of a project ordered by creation time.
func (r *FindingRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Finding, error) {
	query := "SELECT id, data FROM findings WHERE project_id = $1 ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	findings := make([]*models.Finding, 0)

	for rows.Next() {
		var (
			id   string
			data string
		)

		err := rows.Scan(&id, &data)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}

		finding, err := unmarshalFinding(id, data)
		if err != nil {
			return nil, err
		}

		findings = append(findings, finding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate finding rows: %w", err)
	}

	return findings, nil
}

// UpdateStatus transitions the triage status of a finding.
func (r *FindingRepository) UpdateStatus(ctx context.Context, id string, status models.FindingStatus) error {
	if !models.ValidFindingStatus(status) {
		return storage.NewFindingError("UpdateStatus", id, storage.ErrInvalidFindingStatus)
	}

	finding, err := r.ByID(ctx, id)
	if err != nil {
		return err
	}

	finding.Status = status

	return r.Save(ctx, finding)
}

func unmarshalFinding(id, data string) (*models.Finding, error) {
	var finding models.Finding

	err := json.Unmarshal([]byte(data), &finding)
	if err != nil {
		return nil, storage.NewFindingError("Decode", id, err)
	}

	return &finding, nil
}
