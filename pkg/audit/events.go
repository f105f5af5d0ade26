// Package audit emits security-relevant events for plugin loading and
// sandboxed execution. Every load and execution produces an event; this is
// the sole traceability mechanism for security review, not optional logging.
package audit

import (
	"errors"
	"time"
)

// Topic is the audit event stream topic.
const Topic = "probeflow.audit.events"

// Metadata keys set on published audit messages.
const (
	EventTypeMetadataKey = "event_type"
	PluginMetadataKey    = "plugin"
)

type EventType string

const (
	PluginLoadedEvent         EventType = "plugin_loaded"
	PluginLoadFailedEvent     EventType = "plugin_load_failed"
	ManifestRejectedEvent     EventType = "manifest_rejected"
	SignatureCheckEvent       EventType = "signature_check"
	SignatureCheckFailedEvent EventType = "signature_check_failed"
	PluginExecutedEvent       EventType = "plugin_executed"
	PluginExecutionFailed     EventType = "plugin_execution_failed"
	SecurityViolationEvent    EventType = "security_violation"
)

// Event is one JSON-lines audit record.
type Event struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Plugin        string         `json:"plugin"`
	PluginVersion string         `json:"plugin_version,omitempty"`
	Severity      string         `json:"severity"`
	Timestamp     time.Time      `json:"timestamp"`
	Details       map[string]any `json:"details,omitempty"`
}

func (e *Event) Validate() error {
	if e.Type == "" {
		return errors.New("audit event type is required")
	}

	if e.Plugin == "" {
		return errors.New("audit event plugin name is required")
	}

	return nil
}
