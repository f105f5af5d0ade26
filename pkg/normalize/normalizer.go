package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/probeflow/probeflow/pkg/models"
)

// severityTable is the only accepted mapping from raw tool severities to
// canonical levels. Values outside the table are rejected.
var severityTable = map[string]models.Severity{
	"informational": models.SeverityInfo,
	"info":          models.SeverityInfo,
	"low":           models.SeverityLow,
	"medium":        models.SeverityMedium,
	"high":          models.SeverityHigh,
	"critical":      models.SeverityCritical,
}

// Normalizer converts raw records into canonical findings for one
// project and run. Deduplication state lives here, so the same instance
// must be used for the whole run.
type Normalizer struct {
	logger    *slog.Logger
	validate  *validator.Validate
	projectID string
	runID     string
	host      string

	index map[string]*models.Finding
}

func New(logger *slog.Logger, projectID, runID string) *Normalizer {
	host, _ := os.Hostname()

	return &Normalizer{
		logger:    logger.With("module", "normalize", "run_id", runID),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		projectID: projectID,
		runID:     runID,
		host:      host,
		index:     make(map[string]*models.Finding),
	}
}

// Normalize converts the raw records of one source into canonical
// findings. Records whose fingerprint was already seen in this run merge
// into the existing finding instead of producing a new one; the returned
// slice carries the canonical finding for every input record, so callers
// persist upserts in record order.
func (n *Normalizer) Normalize(sourceID string, records []map[string]any) ([]*models.Finding, error) {
	if !models.DetectorIDPattern.MatchString(sourceID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDetectorID, sourceID)
	}

	adapter := AdapterFor(sourceID)
	findings := make([]*models.Finding, 0, len(records))

	for i, record := range records {
		candidate, err := adapter(record)
		if err != nil {
			return nil, fmt.Errorf("record %d from %s: %w", i, sourceID, err)
		}

		finding, err := n.normalizeOne(sourceID, candidate)
		if err != nil {
			return nil, err
		}

		findings = append(findings, finding)
	}

	n.logger.Debug("Normalized records",
		"source", sourceID,
		"records", len(records),
		"findings", len(findings))

	return findings, nil
}

func (n *Normalizer) normalizeOne(sourceID string, candidate *Candidate) (*models.Finding, error) {
	severity, err := MapSeverity(sourceID, candidate.SeverityRaw)
	if err != nil {
		return nil, err
	}

	evidence := truncateEvidence(candidate.Evidence)
	fingerprint := Fingerprint(sourceID, candidate.Resource, candidate.Title)

	if existing, ok := n.index[fingerprint]; ok {
		mergeEvidence(existing, evidence)
		return existing, nil
	}

	finding := &models.Finding{
		ID:            uuid.NewString(),
		SchemaVersion: models.FindingSchemaVersion,
		ProjectID:     n.projectID,
		RunID:         n.runID,
		DetectorID:    sourceID,
		Fingerprint:   fingerprint,
		Title:         candidate.Title,
		Severity:      severity,
		Status:        models.FindingStatusOpen,
		Resource:      candidate.Resource,
		Evidence:      evidence,
		OWASP:         candidate.OWASP,
		CVEs:          candidate.CVEs,
		Techniques:    candidate.Techniques,
		Provenance: models.Provenance{
			Tool:    candidate.Tool,
			Version: candidate.ToolVersion,
			Host:    n.host,
		},
		CreatedAt: time.Now().UTC(),
	}
	if finding.Provenance.Tool == "" {
		finding.Provenance.Tool = sourceID
	}
	if candidate.CWE > 0 {
		cwe := candidate.CWE
		finding.CWE = &cwe
	}
	if candidate.CVSS > 0 {
		cvss := candidate.CVSS
		finding.CVSS = &cvss
	}

	if err := n.validate.Struct(finding); err != nil {
		return nil, asSchemaError(err)
	}

	n.index[fingerprint] = finding

	return finding, nil
}

// MapSeverity maps one raw severity value to its canonical level.
func MapSeverity(sourceID, raw string) (models.Severity, error) {
	severity, ok := severityTable[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", &SeverityMappingError{Value: raw, Source: sourceID}
	}

	return severity, nil
}

// Fingerprint derives the dedup key of a finding from its detector,
// resource and title. Stable across runs so cross-run correlation can
// reuse it.
func Fingerprint(detectorID, resource, title string) string {
	sum := sha256.Sum256([]byte(detectorID + "\x00" + resource + "\x00" + title))
	return hex.EncodeToString(sum[:])
}

// truncateEvidence caps every evidence value at the schema maximum,
// marking truncation so analysts know the payload is partial.
func truncateEvidence(evidence map[string]string) map[string]string {
	out := make(map[string]string, len(evidence))
	limit := models.EvidenceMaxLen - len(models.TruncationMarker)

	for key, value := range evidence {
		if len(value) > models.EvidenceMaxLen {
			value = value[:limit] + models.TruncationMarker
		}
		out[key] = value
	}

	return out
}

// mergeEvidence appends evidence keys the existing finding does not carry
// yet. Existing keys win, so repeated sightings never mutate recorded
// evidence.
func mergeEvidence(finding *models.Finding, evidence map[string]string) {
	if finding.Evidence == nil {
		finding.Evidence = make(map[string]string, len(evidence))
	}
	for key, value := range evidence {
		if _, ok := finding.Evidence[key]; !ok {
			finding.Evidence[key] = value
		}
	}
}

func asSchemaError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &SchemaValidationError{Field: verrs[0].Field(), Err: err}
	}

	return &SchemaValidationError{Field: "unknown", Err: err}
}
