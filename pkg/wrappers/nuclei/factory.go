package nuclei

import (
	"log/slog"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/probeflow/probeflow/pkg/wrappers"
)

// Factory creates nuclei wrapper plugin instances.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) protocol.PluginFactory {
	return &Factory{logger: logger}
}

func (f *Factory) Create(_ map[string]any) (protocol.Plugin, error) {
	return wrappers.NewPlugin(f.logger, func() protocol.ToolWrapper {
		return &Wrapper{}
	}), nil
}

func (f *Factory) ID() string {
	return "scan.nuclei"
}

func (f *Factory) Name() string {
	return "Nuclei Scanner"
}

func (f *Factory) Description() string {
	return "Runs nuclei template-based vulnerability scans against a target"
}

func (f *Factory) Category() models.PluginCategory {
	return models.PluginCategoryDetector
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"target"},
		"properties": map[string]any{
			"target": map[string]any{
				"type":        "string",
				"description": "URL or host to scan",
			},
			"templates": map[string]any{
				"type":        "array",
				"description": "Template paths or IDs to run; defaults to the full installed set",
				"items":       map[string]any{"type": "string"},
			},
			"severity": map[string]any{
				"type":        "string",
				"description": "Comma-separated severity filter passed to nuclei",
			},
			"rate_limit": map[string]any{
				"type":        "number",
				"description": "Maximum requests per second",
			},
			"binary": map[string]any{
				"type":        "string",
				"description": "Path to the nuclei binary",
				"default":     "nuclei",
			},
		},
	}
}
