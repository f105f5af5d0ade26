package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/probeflow/probeflow/pkg/cmd"
	"github.com/probeflow/probeflow/pkg/log"
	"github.com/probeflow/probeflow/pkg/workflow"
)

var ErrInvalidSpec = errors.New("workflow spec is invalid")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a workflow spec without running it",
		ArgsUsage: "<spec file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Directory with compiled .so plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringSliceFlag{
				Name:  "seed",
				Usage: "Dataset name that will be seeded at run time, repeatable",
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

			specPath := command.Args().First()
			if specPath == "" {
				return errors.New("a workflow spec file is required")
			}

			spec, err := workflow.ParseSpecFile(specPath)
			if err != nil {
				return err
			}

			registry := cmd.NewRegistry(ctx, logger, command.String("plugins-path"))
			validator := workflow.NewValidator(registry)

			seeds := command.StringSlice("seed")
			for i, seed := range seeds {
				// Accept both bare names and name=value for symmetry with run.
				if name, _, found := strings.Cut(seed, "="); found {
					seeds[i] = name
				}
			}

			result := validator.Validate(spec, seeds)
			if result.Valid() {
				_, _ = fmt.Fprintf(os.Stdout, "%s: valid (%d nodes)\n", spec.ID, len(spec.Nodes))

				return nil
			}

			_, _ = fmt.Fprintf(os.Stdout, "%s: %d validation errors\n", spec.ID, len(result.Errors))

			for _, verr := range result.Errors {
				_, _ = fmt.Fprintf(os.Stdout, "  - %s\n", verr)
			}

			return fmt.Errorf("%w: %d errors", ErrInvalidSpec, len(result.Errors))
		},
	}
}
