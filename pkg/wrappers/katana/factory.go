package katana

import (
	"log/slog"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/probeflow/probeflow/pkg/wrappers"
)

// Factory creates katana wrapper plugin instances.
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
	return "scan.katana"
}

func (f *Factory) Name() string {
	return "Katana Crawler"
}

func (f *Factory) Description() string {
	return "Crawls a web target and records discovered endpoints"
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
				"description": "URL to crawl",
			},
			"depth": map[string]any{
				"type":        "number",
				"description": "Maximum crawl depth",
			},
			"concurrency": map[string]any{
				"type":        "number",
				"description": "Number of concurrent fetchers",
			},
			"headless": map[string]any{
				"type":        "boolean",
				"description": "Crawl with a headless browser",
				"default":     false,
			},
			"binary": map[string]any{
				"type":        "string",
				"description": "Path to the katana binary",
				"default":     "katana",
			},
		},
	}
}
