package cmd

import (
	"context"
	"log/slog"

	"github.com/probeflow/probeflow/pkg/plugins/native/headeraudit"
	"github.com/probeflow/probeflow/pkg/plugins/native/severitystats"
	"github.com/probeflow/probeflow/pkg/registry"
	"github.com/probeflow/probeflow/pkg/wrappers/feroxbuster"
	"github.com/probeflow/probeflow/pkg/wrappers/katana"
	"github.com/probeflow/probeflow/pkg/wrappers/nuclei"
)

// NewRegistry builds the plugin registry with every native factory and tool
// wrapper registered, plus any .so plugins found under pluginsPath.
func NewRegistry(ctx context.Context, logger *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativePlugins(logger, reg)
	registerWrappers(logger, reg)

	if pluginsPath != "" {
		factories, err := reg.LoadPlugins(pluginsPath)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to load plugins from path", "path", pluginsPath, "error", err)
		}

		for _, factory := range factories {
			reg.Register(factory)
		}
	}

	return reg
}

func registerNativePlugins(_ *slog.Logger, reg *registry.Registry) {
	reg.Register(headeraudit.NewFactory())
	reg.Register(severitystats.NewFactory())
}

func registerWrappers(logger *slog.Logger, reg *registry.Registry) {
	reg.Register(nuclei.NewFactory(logger))
	reg.Register(feroxbuster.NewFactory(logger))
	reg.Register(katana.NewFactory(logger))
}
