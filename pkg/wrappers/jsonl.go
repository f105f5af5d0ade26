package wrappers

import (
	"bufio"
	"bytes"
	"encoding/json"

	"github.com/probeflow/probeflow/pkg/protocol"
)

// ParseJSONL decodes line-delimited JSON objects from raw stdout. Malformed
// or non-object lines never abort the scan; they are counted as skipped so
// callers can surface partial-parse situations.
func ParseJSONL(raw *protocol.RawOutput) (*protocol.ParseResult, error) {
	result := &protocol.ParseResult{Records: make([]map[string]any, 0)}

	scanner := bufio.NewScanner(bytes.NewReader(raw.Stdout))
	// Single findings with embedded request/response dumps run well past
	// the default scanner buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record map[string]any

		err := json.Unmarshal(line, &record)
		if err != nil {
			result.Skipped++
			continue
		}

		result.Records = append(result.Records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
