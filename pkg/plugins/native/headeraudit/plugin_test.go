package headeraudit

import (
	"context"
	"testing"

	"github.com/probeflow/probeflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteFlagsMissingHeaders(t *testing.T) {
	plugin, err := NewPlugin(map[string]any{
		"required_headers": []any{"Strict-Transport-Security", "X-Frame-Options"},
	})
	require.NoError(t, err)

	outputs, err := plugin.Execute(context.Background(), protocol.ExecutionInput{
		Inputs: map[string]any{
			"responses": []map[string]any{
				{
					"url": "https://target.example/",
					"headers": map[string]any{
						"Strict-Transport-Security": "max-age=63072000",
						"Content-Type":              "text/html",
					},
				},
			},
		},
	})
	require.NoError(t, err)

	findings, ok := outputs[protocol.OutputFindings].([]map[string]any)
	require.True(t, ok)
	require.Len(t, findings, 1)
	assert.Equal(t, "Missing X-Frame-Options header", findings[0]["title"])
	assert.Equal(t, "https://target.example/", findings[0]["resource"])
	assert.Equal(t, "low", findings[0]["severity"])
}

func TestExecuteHeaderMatchIsCaseInsensitive(t *testing.T) {
	plugin, err := NewPlugin(map[string]any{
		"required_headers": []any{"X-Content-Type-Options"},
	})
	require.NoError(t, err)

	outputs, err := plugin.Execute(context.Background(), protocol.ExecutionInput{
		Inputs: map[string]any{
			"responses": []map[string]any{
				{
					"url":     "https://target.example/",
					"headers": map[string]any{"x-content-type-options": "nosniff"},
				},
			},
		},
	})
	require.NoError(t, err)

	findings := outputs[protocol.OutputFindings].([]map[string]any)
	assert.Empty(t, findings)
}

func TestExecuteMissingDataset(t *testing.T) {
	plugin, err := NewPlugin(nil)
	require.NoError(t, err)

	_, err = plugin.Execute(context.Background(), protocol.ExecutionInput{Inputs: map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "responses")
}

func TestNewPluginRejectsBadHeaderList(t *testing.T) {
	_, err := NewPlugin(map[string]any{"required_headers": []any{42}})
	assert.Error(t, err)
}
