// Package nuclei wraps the nuclei template scanner.
package nuclei

import (
	"context"
	"fmt"
	"strconv"

	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/probeflow/probeflow/pkg/wrappers"
)

const defaultBinary = "nuclei"

// Wrapper runs nuclei against one target and parses its JSONL results.
type Wrapper struct {
	binary    string
	target    string
	templates []string
	severity  string
	rateLimit int
}

// Prepare validates the node configuration. target is required; everything
// else has tool defaults.
func (w *Wrapper) Prepare(config map[string]any) error {
	target, _ := config["target"].(string)
	if target == "" {
		return fmt.Errorf("nuclei wrapper requires a target")
	}

	w.target = target
	w.binary = defaultBinary

	if binary, ok := config["binary"].(string); ok && binary != "" {
		w.binary = binary
	}

	if severity, ok := config["severity"].(string); ok {
		w.severity = severity
	}

	if rate, ok := config["rate_limit"].(float64); ok && rate > 0 {
		w.rateLimit = int(rate)
	}

	switch templates := config["templates"].(type) {
	case []string:
		w.templates = templates
	case []any:
		for _, t := range templates {
			if s, ok := t.(string); ok {
				w.templates = append(w.templates, s)
			}
		}
	}

	return nil
}

// Run invokes nuclei with JSONL output on stdout.
func (w *Wrapper) Run(ctx context.Context) (*protocol.RawOutput, error) {
	args := []string{"-u", w.target, "-jsonl", "-silent", "-no-color"}

	if w.severity != "" {
		args = append(args, "-severity", w.severity)
	}

	if w.rateLimit > 0 {
		args = append(args, "-rate-limit", strconv.Itoa(w.rateLimit))
	}

	for _, template := range w.templates {
		args = append(args, "-t", template)
	}

	return wrappers.RunCommand(ctx, w.binary, args...)
}

// ParseOutput decodes nuclei JSONL result lines, skipping malformed ones.
func (w *Wrapper) ParseOutput(raw *protocol.RawOutput) (*protocol.ParseResult, error) {
	return wrappers.ParseJSONL(raw)
}
