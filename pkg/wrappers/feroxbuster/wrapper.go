// Package feroxbuster wraps the feroxbuster content discovery tool.
package feroxbuster

import (
	"context"
	"fmt"
	"strconv"

	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/probeflow/probeflow/pkg/wrappers"
)

const defaultBinary = "feroxbuster"

// Wrapper runs feroxbuster against one URL and parses its JSON output.
type Wrapper struct {
	binary   string
	url      string
	wordlist string
	threads  int
	depth    int
}

// Prepare validates the node configuration. url is required.
func (w *Wrapper) Prepare(config map[string]any) error {
	url, _ := config["url"].(string)
	if url == "" {
		return fmt.Errorf("feroxbuster wrapper requires a url")
	}

	w.url = url
	w.binary = defaultBinary

	if binary, ok := config["binary"].(string); ok && binary != "" {
		w.binary = binary
	}

	if wordlist, ok := config["wordlist"].(string); ok {
		w.wordlist = wordlist
	}

	if threads, ok := config["threads"].(float64); ok && threads > 0 {
		w.threads = int(threads)
	}

	if depth, ok := config["depth"].(float64); ok && depth > 0 {
		w.depth = int(depth)
	}

	return nil
}

// Run invokes feroxbuster with JSON output on stdout.
func (w *Wrapper) Run(ctx context.Context) (*protocol.RawOutput, error) {
	args := []string{"-u", w.url, "--json", "--silent"}

	if w.wordlist != "" {
		args = append(args, "-w", w.wordlist)
	}

	if w.threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.threads))
	}

	if w.depth > 0 {
		args = append(args, "-d", strconv.Itoa(w.depth))
	}

	return wrappers.RunCommand(ctx, w.binary, args...)
}

// ParseOutput decodes feroxbuster JSON lines, keeping only response records.
// Statistics and log lines share the stream; they are filtered, not skipped.
func (w *Wrapper) ParseOutput(raw *protocol.RawOutput) (*protocol.ParseResult, error) {
	parsed, err := wrappers.ParseJSONL(raw)
	if err != nil {
		return nil, err
	}

	responses := make([]map[string]any, 0, len(parsed.Records))

	for _, record := range parsed.Records {
		if kind, _ := record["type"].(string); kind == "response" {
			responses = append(responses, record)
		}
	}

	return &protocol.ParseResult{Records: responses, Skipped: parsed.Skipped}, nil
}
