package protocol

import "context"

// RawOutput is the captured result of one external tool invocation.
type RawOutput struct {
	Stdout     []byte `json:"stdout"`
	Stderr     []byte `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	TimedOut   bool   `json:"timed_out"`
}

// ParseResult holds whatever a wrapper could parse from raw tool output plus
// the count of records it had to skip.
type ParseResult struct {
	Records []map[string]any `json:"records"`
	Skipped int              `json:"skipped"`
}

// ToolWrapper normalizes heterogeneous external-tool invocation into a
// uniform three-phase contract. The phases are always called in order:
// Prepare, Run, ParseOutput.
type ToolWrapper interface {
	// Prepare validates and stores the node configuration. It must fail with
	// a descriptive error when a required key is absent, never default it.
	Prepare(config map[string]any) error

	// Run invokes the underlying tool and captures its output. It must honor
	// ctx cancellation and kill the external process on timeout rather than
	// abandoning it. A non-zero exit code is not an error by itself; it is
	// recorded on the RawOutput and retry is the executor's decision.
	Run(ctx context.Context) (*RawOutput, error)

	// ParseOutput parses tool-specific output. A malformed record must not
	// abort parsing of the remainder; it is counted in ParseResult.Skipped.
	ParseOutput(raw *RawOutput) (*ParseResult, error)
}
