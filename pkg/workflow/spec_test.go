package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeflow/probeflow/pkg/models"
)

const yamlSpec = `
id: web-baseline
name: Web Baseline Scan
description: Crawl a target and audit its responses
project: acme
nodes:
  - id: crawl
    type: scan.katana
    config:
      target: https://example.com
    outputs: [endpoints]
  - id: headers
    type: detect.header_audit
    requires: [endpoints]
    outputs: [findings]
    timeout_s: 120
    retries: 2
    retry_backoff_s: 1.5
    limits:
      memory_limit_mb: 256
      cpu_limit_s: 60
      filesystem: temp-dir
      network: true
retry:
  max_attempts: 1
  backoff_factor: 2
  base_delay: 1
`

func TestParseSpecYAML(t *testing.T) {
	spec, err := ParseSpec([]byte(yamlSpec))
	require.NoError(t, err)

	assert.Equal(t, "web-baseline", spec.ID)
	assert.Equal(t, "acme", spec.ProjectID())
	require.Len(t, spec.Nodes, 2)

	headers, ok := spec.Node("headers")
	require.True(t, ok)
	assert.Equal(t, []string{"endpoints"}, headers.Requires)
	assert.Equal(t, 120, headers.TimeoutS)
	require.NotNil(t, headers.Retries)
	assert.Equal(t, 2, *headers.Retries)
	require.NotNil(t, headers.RetryBackoffS)
	assert.InDelta(t, 1.5, *headers.RetryBackoffS, 0.001)

	crawl, ok := spec.Node("crawl")
	require.True(t, ok)
	assert.Nil(t, crawl.Retries, "absent retries should stay unset, not zero")
	require.NotNil(t, headers.Limits)
	assert.Equal(t, 256, headers.Limits.MemoryMB)
	assert.Equal(t, models.FilesystemTempDir, headers.Limits.FilesystemMode)
	assert.True(t, headers.Limits.NetworkAllowed)
}

func TestParseSpecJSON(t *testing.T) {
	jsonSpec := `{
		"id": "api-scan",
		"name": "API Scan",
		"nodes": [
			{"id": "probe", "type": "scan.nuclei", "config": {"target": "https://api.example.com"}}
		]
	}`

	spec, err := ParseSpec([]byte(jsonSpec))
	require.NoError(t, err)

	assert.Equal(t, "api-scan", spec.ID)
	require.Len(t, spec.Nodes, 1)
	assert.Equal(t, "scan.nuclei", spec.Nodes[0].Type)
	assert.Equal(t, "https://api.example.com", spec.Nodes[0].Config["target"])
}

func TestParseSpecRejectsUnknownFields(t *testing.T) {
	_, err := ParseSpec([]byte(`
id: x
name: Bad Spec
nodes: []
totally_unknown_key: true
`))
	assert.Error(t, err)
}

func TestSpecRoundTrip(t *testing.T) {
	spec, err := ParseSpec([]byte(yamlSpec))
	require.NoError(t, err)

	encoded, err := EncodeSpec(spec)
	require.NoError(t, err)

	reparsed, err := ParseSpec(encoded)
	require.NoError(t, err)

	assert.Equal(t, spec, reparsed)
}
