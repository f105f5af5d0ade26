package severitystats

import (
	"context"
	"testing"

	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCountsBySeverity(t *testing.T) {
	plugin, err := NewPlugin(nil)
	require.NoError(t, err)

	outputs, err := plugin.Execute(context.Background(), protocol.ExecutionInput{
		Inputs: map[string]any{
			"findings": []map[string]any{
				{"severity": "high"},
				{"severity": "high"},
				{"severity": "low"},
			},
		},
	})
	require.NoError(t, err)

	stats, ok := outputs["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, stats["total"])

	counts := stats["by_severity"].(map[string]int)
	assert.Equal(t, 2, counts["high"])
	assert.Equal(t, 1, counts["low"])
}

func TestExecuteCustomDataset(t *testing.T) {
	plugin, err := NewPlugin(map[string]any{"dataset": "nuclei_findings"})
	require.NoError(t, err)

	outputs, err := plugin.Execute(context.Background(), protocol.ExecutionInput{
		Inputs: map[string]any{
			"nuclei_findings": []any{map[string]any{"severity": "critical"}},
		},
	})
	require.NoError(t, err)

	stats := outputs["stats"].(map[string]any)
	assert.Equal(t, 1, stats["total"])
}

func TestExecuteMissingDataset(t *testing.T) {
	plugin, err := NewPlugin(nil)
	require.NoError(t, err)

	_, err = plugin.Execute(context.Background(), protocol.ExecutionInput{Inputs: map[string]any{}})
	assert.Error(t, err)
}
