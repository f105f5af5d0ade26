package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/probeflow/probeflow/pkg/cmd"
	"github.com/probeflow/probeflow/pkg/log"
	"github.com/probeflow/probeflow/pkg/models"
	"github.com/probeflow/probeflow/pkg/otelhelper"
	"github.com/probeflow/probeflow/pkg/plugins"
	"github.com/probeflow/probeflow/pkg/sandbox"
	"github.com/probeflow/probeflow/pkg/workflow"
)

var ErrRunFailed = errors.New("workflow run failed")

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Execute a workflow spec",
		ArgsUsage: "<spec file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Storage URL (memory://, file://, sqlite://, postgres://, redis://)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Directory with compiled .so plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "manifest-dir",
				Usage:   "Directory with plugin manifests to verify and load",
				Sources: cli.EnvVars("MANIFEST_DIR"),
			},
			&cli.StringFlag{
				Name:    "audit-bus",
				Usage:   "Audit event transport (kafka or channel)",
				Value:   "channel",
				Sources: cli.EnvVars("AUDIT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "audit-log",
				Usage:   "Append audit events as JSON lines to this file",
				Sources: cli.EnvVars("AUDIT_LOG_PATH"),
			},
			&cli.StringSliceFlag{
				Name:  "seed",
				Usage: "Seed dataset as name=value, repeatable",
			},
			&cli.StringFlag{
				Name:  "schedule",
				Usage: "Cron expression; re-run the workflow on this schedule instead of once",
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("probeflow")

			specPath := command.Args().First()
			if specPath == "" {
				return errors.New("a workflow spec file is required")
			}

			spec, err := workflow.ParseSpecFile(specPath)
			if err != nil {
				return err
			}

			seeds, err := parseSeeds(command.StringSlice("seed"))
			if err != nil {
				return err
			}

			executor, cleanup, err := buildExecutor(ctx, logger, command)
			if err != nil {
				return err
			}
			defer cleanup()

			if expr := command.String("schedule"); expr != "" {
				return runScheduled(ctx, logger, executor, spec, seeds, expr)
			}

			return runOnce(ctx, executor, spec, seeds)
		},
	}
}

// buildExecutor wires storage, registry, audit pipeline and plugin loader
// into one executor. The returned cleanup releases all of them.
func buildExecutor(ctx context.Context, logger *slog.Logger, command *cli.Command) (*workflow.Executor, func(), error) {
	store, err := cmd.NewStorage(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, nil, err
	}

	emitter, auditCleanup, err := cmd.NewAuditPipeline(ctx, logger,
		command.String("audit-bus"), command.String("audit-log"), "probeflow")
	if err != nil {
		_ = store.Close(ctx)

		return nil, nil, err
	}

	registry := cmd.NewRegistry(ctx, logger, command.String("plugins-path"))
	loader := plugins.NewLoader(logger, registry, sandbox.New(logger), emitter, command.String("manifest-dir"))

	if command.String("manifest-dir") != "" {
		_, err = loader.Discover(ctx)
		if err != nil {
			auditCleanup()
			_ = store.Close(ctx)

			return nil, nil, fmt.Errorf("plugin discovery failed: %w", err)
		}
	}

	var tracer trace.Tracer

	if command.Bool("tracing") {
		tracer, err = otelhelper.NewTracer(ctx, "probeflow")
		if err != nil {
			auditCleanup()
			_ = store.Close(ctx)

			return nil, nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	cleanup := func() {
		auditCleanup()

		if err := store.Close(ctx); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}

	return workflow.NewExecutor(logger, loader, store, tracer), cleanup, nil
}

func runOnce(ctx context.Context, executor *workflow.Executor, spec *models.WorkflowSpec, seeds map[string]any) error {
	result, err := executor.Execute(ctx, spec, seeds)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(os.Stdout, string(encoded))

	if result.Status == models.RunStatusFailed {
		return fmt.Errorf("%w: run %s", ErrRunFailed, result.RunID)
	}

	return nil
}

func runScheduled(
	ctx context.Context,
	logger *slog.Logger,
	executor *workflow.Executor,
	spec *models.WorkflowSpec,
	seeds map[string]any,
	expr string,
) error {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(expr, func() {
		result, err := executor.Execute(ctx, spec, seeds)
		if err != nil {
			logger.Error("Scheduled run failed", "workflow_id", spec.ID, "error", err)

			return
		}

		logger.Info("Scheduled run completed", "workflow_id", spec.ID, "run_id", result.RunID, "status", result.Status)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	logger.Info("Starting scheduler", "workflow_id", spec.ID, "schedule", expr)
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()

	return nil
}

// parseSeeds turns repeated name=value flags into seed datasets.
func parseSeeds(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	seeds := make(map[string]any, len(raw))

	for _, pair := range raw {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid seed %q, expected name=value", pair)
		}

		seeds[name] = value
	}

	return seeds, nil
}
