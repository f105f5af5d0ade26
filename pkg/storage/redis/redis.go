// Package redis provides Redis storage implementation for findings. Each
// finding is a JSON value; a per-project set indexes its finding IDs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/storage"
)

const (
	findingKeyPrefix = "probeflow:finding:"
	projectKeyPrefix = "probeflow:project:"
)

// Storage implements the storage layer for Redis.
type Storage struct {
	client *goredis.Client
	logger *slog.Logger
}

// NewStorage connects to Redis at the given URL (redis://host:port/db).
func NewStorage(ctx context.Context, logger *slog.Logger, databaseURL string) (*Storage, error) {
	opts, err := goredis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Storage{client: client, logger: logger}, nil
}

// SaveFinding stores the finding JSON and indexes it under its project.
func (s *Storage) SaveFinding(ctx context.Context, finding *models.Finding) error {
	data, err := json.Marshal(finding)
	if err != nil {
		return storage.NewFindingError("Save", finding.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, findingKeyPrefix+finding.ID, data, 0)
	pipe.SAdd(ctx, projectKeyPrefix+finding.ProjectID+":findings", finding.ID)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return storage.NewFindingError("Save", finding.ID, err)
	}

	return nil
}

// FindingByID returns a finding by its ID.
func (s *Storage) FindingByID(ctx context.Context, id string) (*models.Finding, error) {
	data, err := s.client.Get(ctx, findingKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.NewFindingError("ByID", id, storage.ErrFindingNotFound)
	}

	if err != nil {
		return nil, storage.NewFindingError("ByID", id, err)
	}

	var finding models.Finding

	err = json.Unmarshal(data, &finding)
	if err != nil {
		return nil, storage.NewFindingError("ByID", id, err)
	}

	return &finding, nil
}

// ListFindings returns all findings of a project ordered by creation time.
func (s *Storage) ListFindings(ctx context.Context, projectID string) ([]*models.Finding, error) {
	ids, err := s.client.SMembers(ctx, projectKeyPrefix+projectID+":findings").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list findings for project %s: %w", projectID, err)
	}

	findings := make([]*models.Finding, 0, len(ids))

	for _, id := range ids {
		finding, err := s.FindingByID(ctx, id)
		if err != nil {
			// Index entry without a value: the finding key expired or was
			// deleted out-of-band, skip it.
			if storage.IsFindingNotFound(err) {
				continue
			}

			return nil, err
		}

		findings = append(findings, finding)
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].CreatedAt.Equal(findings[j].CreatedAt) {
			return findings[i].ID < findings[j].ID
		}

		return findings[i].CreatedAt.Before(findings[j].CreatedAt)
	})

	return findings, nil
}

// UpdateFindingStatus transitions the triage status of a finding.
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

// HealthCheck verifies the Redis connection is healthy.
func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

// Close closes the Redis client.
func (s *Storage) Close(_ context.Context) error {
	return s.client.Close()
}
