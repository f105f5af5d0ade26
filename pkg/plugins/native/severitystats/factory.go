// Package severitystats provides the built-in findings severity analytics plugin.
package severitystats

import (
	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/protocol"
)

// Factory creates severity stats plugin instances.
type Factory struct{}

func NewFactory() protocol.PluginFactory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any) (protocol.Plugin, error) {
	return NewPlugin(config)
}

func (f *Factory) ID() string {
	return "enrich.severity_stats"
}

func (f *Factory) Name() string {
	return "Severity Statistics"
}

func (f *Factory) Description() string {
	return "Aggregates upstream finding records into per-severity counts"
}

func (f *Factory) Category() models.PluginCategory {
	return models.PluginCategoryAnalytics
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dataset": map[string]any{
				"type":        "string",
				"description": "Name of the input dataset holding finding records",
				"default":     "findings",
			},
		},
	}
}
