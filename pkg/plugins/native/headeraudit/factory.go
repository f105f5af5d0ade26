// Package headeraudit provides the built-in security response header detector.
package headeraudit

import (
	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/protocol"
)

// Factory creates header audit plugin instances.
type Factory struct{}

func NewFactory() protocol.PluginFactory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any) (protocol.Plugin, error) {
	return NewPlugin(config)
}

func (f *Factory) ID() string {
	return "detect.header_audit"
}

func (f *Factory) Name() string {
	return "HTTP Security Header Audit"
}

func (f *Factory) Description() string {
	return "Flags HTTP responses missing standard security headers"
}

func (f *Factory) Category() models.PluginCategory {
	return models.PluginCategoryDetector
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"required_headers": map[string]any{
				"type":        "array",
				"description": "Headers whose absence is reported. Defaults to the standard security header set.",
				"items":       map[string]any{"type": "string"},
			},
			"severity": map[string]any{
				"type":        "string",
				"description": "Severity assigned to findings",
				"default":     "low",
				"enum":        []string{"informational", "low", "medium"},
			},
		},
	}
}
