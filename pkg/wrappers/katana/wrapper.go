// Package katana wraps the katana web crawler.
package katana

import (
	"context"
	"fmt"
	"strconv"

	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/probeflow/probeflow/pkg/wrappers"
)

const defaultBinary = "katana"

// Wrapper crawls one target with katana and parses its JSONL output.
type Wrapper struct {
	binary      string
	target      string
	depth       int
	concurrency int
	headless    bool
}

// Prepare validates the node configuration. target is required.
func (w *Wrapper) Prepare(config map[string]any) error {
	target, _ := config["target"].(string)
	if target == "" {
		return fmt.Errorf("katana wrapper requires a target")
	}

	w.target = target
	w.binary = defaultBinary

	if binary, ok := config["binary"].(string); ok && binary != "" {
		w.binary = binary
	}

	if depth, ok := config["depth"].(float64); ok && depth > 0 {
		w.depth = int(depth)
	}

	if concurrency, ok := config["concurrency"].(float64); ok && concurrency > 0 {
		w.concurrency = int(concurrency)
	}

	if headless, ok := config["headless"].(bool); ok {
		w.headless = headless
	}

	return nil
}

// Run invokes katana with JSONL output on stdout.
func (w *Wrapper) Run(ctx context.Context) (*protocol.RawOutput, error) {
	args := []string{"-u", w.target, "-jsonl", "-silent"}

	if w.depth > 0 {
		args = append(args, "-depth", strconv.Itoa(w.depth))
	}

	if w.concurrency > 0 {
		args = append(args, "-concurrency", strconv.Itoa(w.concurrency))
	}

	if w.headless {
		args = append(args, "-headless")
	}

	return wrappers.RunCommand(ctx, w.binary, args...)
}

// ParseOutput decodes katana crawl result lines, skipping malformed ones.
func (w *Wrapper) ParseOutput(raw *protocol.RawOutput) (*protocol.ParseResult, error) {
	return wrappers.ParseJSONL(raw)
}
