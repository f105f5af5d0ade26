package plugins

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/probeflow/probeflow/pkg/audit"
	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/probeflow/probeflow/pkg/registry"
	"github.com/probeflow/probeflow/pkg/sandbox"
	"github.com/xeipuuv/gojsonschema"
)

// Handle is a resolved, verified plugin ready to execute. Manifest is nil for
// built-in factories registered directly on the registry.
type Handle struct {
	Factory  protocol.PluginFactory
	Manifest *models.PluginManifest
}

// Loader owns plugin discovery, integrity verification and sandboxed
// execution. It is constructed once per process; its registry is explicit
// state, passed in, never global.
type Loader struct {
	logger      *slog.Logger
	registry    *registry.Registry
	sandbox     *sandbox.Sandbox
	emitter     *audit.Emitter
	manifestDir string
	validate    *validator.Validate
	manifests   map[string]*models.PluginManifest
	verified    map[string]bool
}

func NewLoader(
	logger *slog.Logger,
	reg *registry.Registry,
	sb *sandbox.Sandbox,
	emitter *audit.Emitter,
	manifestDir string,
) *Loader {
	return &Loader{
		logger:      logger.With("module", "plugin_loader"),
		registry:    reg,
		sandbox:     sb,
		emitter:     emitter,
		manifestDir: manifestDir,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		manifests:   make(map[string]*models.PluginManifest),
		verified:    make(map[string]bool),
	}
}

// Discover scans the manifest directory, one JSON manifest per file. A
// manifest that fails parsing or schema validation is skipped with a warning;
// it never aborts discovery of the others. Each surviving manifest's artifact
// is hash-verified immediately, and verified shared objects are registered.
func (l *Loader) Discover(ctx context.Context) ([]*models.PluginManifest, error) {
	if l.manifestDir == "" {
		return nil, nil
	}

	paths, err := filepath.Glob(filepath.Join(l.manifestDir, "*.json"))
	if err != nil {
		return nil, err
	}

	discovered := make([]*models.PluginManifest, 0, len(paths))

	for _, path := range paths {
		manifest, err := l.readManifest(path)
		if err != nil {
			l.logger.WarnContext(ctx, "Skipping malformed plugin manifest", "path", path, "error", err)
			l.auditEvent(ctx, audit.ManifestRejectedEvent, filepath.Base(path), "", "warning",
				map[string]any{"path": path, "error": err.Error()})

			continue
		}

		l.manifests[manifest.Name] = manifest
		discovered = append(discovered, manifest)

		artifact := l.artifactPath(manifest)

		if l.Verify(manifest, artifact) {
			l.verified[manifest.Name] = true
			l.auditEvent(ctx, audit.SignatureCheckEvent, manifest.Name, manifest.Version, "info",
				map[string]any{"artifact": artifact})
			l.registerArtifact(ctx, manifest, artifact)
		} else {
			l.verified[manifest.Name] = false
			l.auditEvent(ctx, audit.SignatureCheckFailedEvent, manifest.Name, manifest.Version, "high",
				map[string]any{"artifact": artifact})
			l.logger.WarnContext(ctx, "Plugin failed integrity verification, loading blocked",
				"plugin", manifest.Name, "artifact", artifact)
		}
	}

	return discovered, nil
}

// Verify recomputes the artifact's content hash and compares it to the
// manifest's code_hash. Any mismatch, unreadable artifact or expired manifest
// fails verification; the plugin must not be loaded.
func (l *Loader) Verify(manifest *models.PluginManifest, artifactPath string) bool {
	if manifest.Expired(time.Now().UTC()) {
		return false
	}

	actual, err := ArtifactHash(artifactPath)
	if err != nil {
		l.logger.Warn("Failed to hash plugin artifact", "plugin", manifest.Name, "error", err)

		return false
	}

	expected := normalizeHash(manifest.CodeHash)

	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}

// Verified reports the integrity-check outcome recorded at discovery for the
// named plugin. Unknown names report false.
func (l *Loader) Verified(name string) bool {
	return l.verified[name]
}

// Load resolves a node type to an executable handle. Built-in factories with
// no manifest are trusted; manifest-described plugins load only if their
// integrity check passed at discovery.
func (l *Loader) Load(ctx context.Context, nodeType string) (*Handle, error) {
	manifest, hasManifest := l.manifests[nodeType]

	if hasManifest && !l.verified[nodeType] {
		l.auditEvent(ctx, audit.PluginLoadFailedEvent, nodeType, manifest.Version, "high",
			map[string]any{"reason": "signature verification failed"})

		return nil, &LoadError{Op: "Load", Plugin: nodeType, Err: ErrSignatureVerificationFailed}
	}

	factory, ok := l.registry.Factory(nodeType)
	if !ok {
		return nil, &LoadError{Op: "Load", Plugin: nodeType, Err: ErrPluginNotFound}
	}

	version := ""
	if hasManifest {
		version = manifest.Version
	}

	l.auditEvent(ctx, audit.PluginLoadedEvent, nodeType, version, "info", nil)

	return &Handle{Factory: factory, Manifest: manifest}, nil
}

// Has reports whether the node type is resolvable, whether or not its
// verification passed. Used by workflow validation.
func (l *Loader) Has(nodeType string) bool {
	if l.registry.Has(nodeType) {
		return true
	}

	_, ok := l.manifests[nodeType]

	return ok
}

// Execute runs the handle's plugin inside the sandbox under the given limits
// and timeout. Config is validated against the factory's declared schema
// before instantiation. Every execution emits an audit event; sandbox
// violations additionally emit a security_violation event.
func (l *Loader) Execute(
	ctx context.Context,
	handle *Handle,
	input protocol.ExecutionInput,
	limits models.ResourceLimits,
	timeout time.Duration,
) (map[string]any, error) {
	nodeType := handle.Factory.ID()

	if err := l.validateConfig(handle, input.Config); err != nil {
		return nil, &LoadError{Op: "Execute", Plugin: nodeType, Err: err}
	}

	plg, err := handle.Factory.Create(input.Config)
	if err != nil {
		return nil, &LoadError{Op: "Execute", Plugin: nodeType, Err: err}
	}

	env, cleanup, err := l.sandbox.NewEnv(limits)
	if err != nil {
		return nil, &LoadError{Op: "Execute", Plugin: nodeType, Err: err}
	}
	defer cleanup()

	input.Env = env

	version := ""
	if handle.Manifest != nil {
		version = handle.Manifest.Version
	}

	started := time.Now()

	outputs, err := l.sandbox.Execute(ctx, limits, timeout, func(execCtx context.Context) (map[string]any, error) {
		return plg.Execute(execCtx, input)
	})

	durationMs := time.Since(started).Milliseconds()

	if violation, ok := sandbox.AsViolation(err); ok {
		l.auditEvent(ctx, audit.SecurityViolationEvent, nodeType, version, "high", map[string]any{
			"limit":       violation.Limit,
			"ceiling":     violation.Ceiling,
			"observed":    violation.Observed,
			"node_id":     input.NodeID,
			"run_id":      input.RunID,
			"duration_ms": durationMs,
		})

		return nil, err
	}

	if err != nil {
		l.auditEvent(ctx, audit.PluginExecutionFailed, nodeType, version, "warning", map[string]any{
			"node_id":     input.NodeID,
			"run_id":      input.RunID,
			"error":       err.Error(),
			"duration_ms": durationMs,
		})

		return nil, err
	}

	l.auditEvent(ctx, audit.PluginExecutedEvent, nodeType, version, "info", map[string]any{
		"node_id":     input.NodeID,
		"run_id":      input.RunID,
		"duration_ms": durationMs,
	})

	return outputs, nil
}

func (l *Loader) readManifest(path string) (*models.PluginManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	manifest, err := parseManifest(raw)
	if err != nil {
		return nil, err
	}

	if err := l.validate.Struct(manifest); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
	}

	return manifest, nil
}

// artifactPath resolves the manifest entrypoint relative to the manifest dir.
func (l *Loader) artifactPath(manifest *models.PluginManifest) string {
	if filepath.IsAbs(manifest.Entrypoint) {
		return manifest.Entrypoint
	}

	return filepath.Join(l.manifestDir, manifest.Entrypoint)
}

// registerArtifact opens a verified .so artifact and registers its factory.
// Non-.so entrypoints are expected to be registered as built-ins by the host
// process and are left alone here.
func (l *Loader) registerArtifact(ctx context.Context, manifest *models.PluginManifest, artifact string) {
	if !strings.HasSuffix(artifact, ".so") {
		return
	}

	factories, err := l.registry.LoadPlugins(filepath.Dir(artifact))
	if err != nil {
		l.logger.WarnContext(ctx, "Failed to load plugin artifact", "plugin", manifest.Name, "error", err)

		return
	}

	for _, factory := range factories {
		if factory.ID() == manifest.Name {
			l.registry.Register(factory)
		}
	}
}

func (l *Loader) validateConfig(handle *Handle, config map[string]any) error {
	schema := handle.Factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("config validation failed: %s", strings.Join(descriptions, "; "))
	}

	return nil
}

func (l *Loader) auditEvent(ctx context.Context, eventType audit.EventType, plugin, version, severity string, details map[string]any) {
	if l.emitter == nil {
		return
	}

	if err := l.emitter.Emit(ctx, &audit.Event{
		Type:          eventType,
		Plugin:        plugin,
		PluginVersion: version,
		Severity:      severity,
		Details:       details,
	}); err != nil {
		l.logger.ErrorContext(ctx, "Failed to emit audit event", "type", eventType, "error", err)
	}
}
