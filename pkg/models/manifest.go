package models

import "time"

// PluginCategory identifies what kind of work a plugin performs.
type PluginCategory string

const (
	PluginCategoryDetector  PluginCategory = "detector"
	PluginCategoryEnricher  PluginCategory = "enricher"
	PluginCategoryAnalytics PluginCategory = "analytics"
)

// PluginManifest describes one loadable plugin. Manifests are authored once
// per plugin release, are read-only at runtime, and are re-verified against
// the artifact hash on every discovery pass.
type PluginManifest struct {
	Name          string         `json:"name"                     validate:"required"`
	Version       string         `json:"version"                  validate:"required"`
	Description   string         `json:"description"`
	Author        string         `json:"author"`
	Category      PluginCategory `json:"category"                 validate:"required,oneof=detector enricher analytics"`
	Entrypoint    string         `json:"entrypoint"               validate:"required"`
	Dependencies  []string       `json:"dependencies,omitempty"`
	ConfigSchema  map[string]any `json:"config_schema,omitempty"`
	CodeHash      string         `json:"code_hash"                validate:"required"`
	Signature     string         `json:"signature,omitempty"`
	SignatureType string         `json:"signature_type,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
}

// Expired reports whether the manifest is past its expiry, if one is set.
func (m *PluginManifest) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}
