package models

import (
	"regexp"
	"time"
)

// FindingSchemaVersion is stamped on every normalized finding so consumers
// can detect schema drift across releases.
const FindingSchemaVersion = "1.0.0"

// EvidenceMaxLen is the ceiling for one stored evidence fragment. Oversized
// fragments are truncated with TruncationMarker, never rejected.
const (
	EvidenceMaxLen   = 2048
	TruncationMarker = "...[truncated]"
)

// DetectorIDPattern constrains detector identifiers stamped on findings.
var DetectorIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Severity is the ordinal severity scale. Any value outside the enum is a
// validation error, never silently coerced.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FindingStatus is the triage state of a finding. Status is the only mutable
// field on a persisted finding.
type FindingStatus string

const (
	FindingStatusOpen          FindingStatus = "open"
	FindingStatusTriaged       FindingStatus = "triaged"
	FindingStatusResolved      FindingStatus = "resolved"
	FindingStatusFalsePositive FindingStatus = "false_positive"
	FindingStatusArchived      FindingStatus = "archived"
)

// ValidFindingStatus reports whether s is one of the triage states.
func ValidFindingStatus(s FindingStatus) bool {
	switch s {
	case FindingStatusOpen, FindingStatusTriaged, FindingStatusResolved,
		FindingStatusFalsePositive, FindingStatusArchived:
		return true
	}

	return false
}

// Provenance records where a finding came from.
type Provenance struct {
	Tool    string `json:"tool"`
	Version string `json:"version,omitempty"`
	Host    string `json:"host,omitempty"`
}

// Finding is the canonical normalized record of one detected issue. Content
// fields are immutable after creation; only Status transitions are allowed.
type Finding struct {
	ID            string            `json:"id"                               validate:"required"`
	ProjectID     string            `json:"project_id"                       validate:"required"`
	RunID         string            `json:"run_id,omitempty"`
	DetectorID    string            `json:"detector_id"                      validate:"required"`
	Title         string            `json:"title"                            validate:"required"`
	Severity      Severity          `json:"severity"                         validate:"required,oneof=info low medium high critical"`
	Resource      string            `json:"resource"                         validate:"required"`
	Evidence      map[string]string `json:"evidence,omitempty"`
	CWE           *int              `json:"cwe,omitempty"                    validate:"omitempty,gt=0"`
	OWASP         string            `json:"owasp,omitempty"`
	CVEs          []string          `json:"cves,omitempty"`
	CVSS          *float64          `json:"cvss,omitempty"                   validate:"omitempty,gte=0,lte=10"`
	Techniques    []string          `json:"attack_techniques,omitempty"`
	Status        FindingStatus     `json:"status"                           validate:"required"`
	Fingerprint   string            `json:"fingerprint"                      validate:"required"`
	CreatedAt     time.Time         `json:"created_at"                       validate:"required"`
	Provenance    Provenance        `json:"provenance"`
	SchemaVersion string            `json:"finding_schema_version"           validate:"required"`
}
