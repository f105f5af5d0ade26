package feroxbuster

import (
	"log/slog"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/probeflow/probeflow/pkg/wrappers"
)

// Factory creates feroxbuster wrapper plugin instances.
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
	return "scan.feroxbuster"
}

func (f *Factory) Name() string {
	return "Feroxbuster Content Discovery"
}

func (f *Factory) Description() string {
	return "Brute-forces directories and files on a web target"
}

func (f *Factory) Category() models.PluginCategory {
	return models.PluginCategoryDetector
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"url"},
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Base URL to enumerate",
			},
			"wordlist": map[string]any{
				"type":        "string",
				"description": "Path to the wordlist; defaults to the tool's built-in list",
			},
			"threads": map[string]any{
				"type":        "number",
				"description": "Number of concurrent request threads",
			},
			"depth": map[string]any{
				"type":        "number",
				"description": "Maximum recursion depth",
			},
			"binary": map[string]any{
				"type":        "string",
				"description": "Path to the feroxbuster binary",
				"default":     "feroxbuster",
			},
		},
	}
}
