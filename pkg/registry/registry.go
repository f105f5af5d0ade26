// Package registry maps node-type strings to plugin factories. A Registry is
// constructed once per process and passed by reference; there is no global
// registry state.
package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"

	"github.com/probeflow/probeflow/pkg/protocol"
)

// FactorySymbol is the symbol an external .so plugin must export. It must be
// assignable to protocol.PluginFactory.
const FactorySymbol = "Factory"

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.PluginFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[string]protocol.PluginFactory),
	}
}

// Register adds a factory under its node-type id; a later registration for
// the same id replaces the earlier one.
func (r *Registry) Register(factory protocol.PluginFactory) {
	r.factories[factory.ID()] = factory
}

// Has reports whether a factory serves the node type.
func (r *Registry) Has(nodeType string) bool {
	_, ok := r.factories[nodeType]

	return ok
}

// Factory returns the factory registered for the node type.
func (r *Registry) Factory(nodeType string) (protocol.PluginFactory, bool) {
	factory, ok := r.factories[nodeType]

	return factory, ok
}

// Create instantiates a plugin for the node type with the given config.
func (r *Registry) Create(nodeType string, config map[string]any) (protocol.Plugin, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return factory.Create(config)
}

// Types returns the registered node types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for nodeType := range r.factories {
		types = append(types, nodeType)
	}

	sort.Strings(types)

	return types
}

// LoadPlugins opens every .so under pluginsPath and registers the factory it
// exports. A shared object that cannot be opened or does not export a usable
// factory is skipped with a warning; it must not abort loading of the rest.
func (r *Registry) LoadPlugins(pluginsPath string) ([]protocol.PluginFactory, error) {
	root := os.DirFS(pluginsPath)

	paths, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	logger := r.logger.With(slog.String("path", pluginsPath))
	logger.Info("Loading plugins", "count", len(paths))

	factories := make([]protocol.PluginFactory, 0, len(paths))

	for _, p := range paths {
		plg, err := plugin.Open(pluginsPath + "/" + p)
		if err != nil {
			logger.Warn("Skipping unloadable plugin", "plugin", p, "error", err)

			continue
		}

		symbol, err := plg.Lookup(FactorySymbol)
		if err != nil {
			logger.Warn("Skipping plugin without factory symbol", "plugin", p, "error", err)

			continue
		}

		factory, ok := symbol.(protocol.PluginFactory)
		if !ok {
			logger.Warn("Skipping plugin with incompatible factory type", "plugin", p)

			continue
		}

		factories = append(factories, factory)

		logger.Info("Loaded plugin", slog.String("plugin", p), slog.String("type", factory.ID()))
	}

	return factories, nil
}
