package nuclei

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeflow/probeflow/pkg/protocol"
)

func TestPrepareRequiresTarget(t *testing.T) {
	w := &Wrapper{}

	err := w.Prepare(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")
}

func TestPrepareReadsConfig(t *testing.T) {
	w := &Wrapper{}

	err := w.Prepare(map[string]any{
		"target":     "https://example.com",
		"severity":   "high,critical",
		"rate_limit": float64(50),
		"templates":  []any{"cves/", "exposures/"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", w.target)
	assert.Equal(t, "high,critical", w.severity)
	assert.Equal(t, 50, w.rateLimit)
	assert.Equal(t, []string{"cves/", "exposures/"}, w.templates)
	assert.Equal(t, defaultBinary, w.binary)
}

func TestParseOutputSkipsMalformedLines(t *testing.T) {
	w := &Wrapper{}

	raw := &protocol.RawOutput{
		Stdout: []byte(`{"template-id":"tech-detect","info":{"name":"Tech Detect","severity":"info"},"matched-at":"https://example.com"}
not json at all
{"template-id":"exposed-panel","info":{"name":"Exposed Panel","severity":"medium"},"matched-at":"https://example.com/admin"}
`),
	}

	result, err := w.ParseOutput(raw)
	require.NoError(t, err)

	assert.Len(t, result.Records, 2)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "tech-detect", result.Records[0]["template-id"])
}
