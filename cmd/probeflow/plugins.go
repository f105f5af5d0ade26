package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"

	"github.com/probeflow/probeflow/pkg/cmd"
	"github.com/probeflow/probeflow/pkg/log"
	"github.com/probeflow/probeflow/pkg/plugins"
	"github.com/probeflow/probeflow/pkg/sandbox"
)

// ErrVerificationFailed is returned when at least one discovered plugin fails
// its integrity check.
var ErrVerificationFailed = fmt.Errorf("plugin verification failed")

func NewPluginsCommand() *cli.Command {
	return &cli.Command{
		Name:    "plugins",
		Aliases: []string{"p"},
		Usage:   "Inspect available plugins",
		Commands: []*cli.Command{
			newPluginsListCommand(),
			newPluginsVerifyCommand(),
		},
	}
}

func newPluginsListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List available node types",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Directory with compiled .so plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("probeflow")

			registry := cmd.NewRegistry(ctx, logger, command.String("plugins-path"))

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(writer, "TYPE\tCATEGORY\tDESCRIPTION")

			for _, nodeType := range registry.Types() {
				factory, ok := registry.Factory(nodeType)
				if !ok {
					continue
				}

				_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\n", factory.ID(), factory.Category(), factory.Description())
			}

			return writer.Flush()
		},
	}
}

func newPluginsVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify plugin manifests and artifact hashes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "manifest-dir",
				Usage:    "Directory with plugin manifests (one JSON file per plugin)",
				Required: true,
				Sources:  cli.EnvVars("MANIFEST_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("probeflow")

			registry := cmd.NewRegistry(ctx, logger, "")
			loader := plugins.NewLoader(logger, registry, sandbox.New(logger), nil, command.String("manifest-dir"))

			manifests, err := loader.Discover(ctx)
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(writer, "PLUGIN\tVERSION\tINTEGRITY")

			failed := 0

			for _, manifest := range manifests {
				status := "verified"
				if !loader.Verified(manifest.Name) {
					status = "FAILED"
					failed++
				}

				_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\n", manifest.Name, manifest.Version, status)
			}

			if err := writer.Flush(); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d plugins", ErrVerificationFailed, failed, len(manifests))
			}

			return nil
		},
	}
}
