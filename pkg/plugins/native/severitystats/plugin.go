package severitystats

import (
	"context"
	"fmt"

	"github.com/probeflow/probeflow/pkg/protocol"
)

// Plugin counts upstream finding records per severity. It produces no
// findings of its own, only the "stats" dataset.
type Plugin struct {
	dataset string
}

func NewPlugin(config map[string]any) (*Plugin, error) {
	p := &Plugin{dataset: "findings"}

	if dataset, ok := config["dataset"].(string); ok && dataset != "" {
		p.dataset = dataset
	}

	return p, nil
}

func (p *Plugin) Execute(_ context.Context, input protocol.ExecutionInput) (map[string]any, error) {
	raw, ok := input.Inputs[p.dataset]
	if !ok {
		return nil, fmt.Errorf("required input dataset '%s' is missing", p.dataset)
	}

	counts := map[string]int{}
	total := 0

	switch records := raw.(type) {
	case []map[string]any:
		for _, record := range records {
			severity, _ := record["severity"].(string)
			counts[severity]++
			total++
		}
	case []any:
		for _, item := range records {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}

			severity, _ := record["severity"].(string)
			counts[severity]++
			total++
		}
	default:
		return nil, fmt.Errorf("dataset '%s' must be a list of finding records, got %T", p.dataset, raw)
	}

	return map[string]any{
		"stats": map[string]any{
			"total":       total,
			"by_severity": counts,
		},
	}, nil
}
