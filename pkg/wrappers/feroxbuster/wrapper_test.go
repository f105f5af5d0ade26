package feroxbuster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeflow/probeflow/pkg/protocol"
)

func TestPrepareRequiresURL(t *testing.T) {
	w := &Wrapper{}

	err := w.Prepare(map[string]any{"wordlist": "/usr/share/wordlists/common.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestParseOutputKeepsOnlyResponses(t *testing.T) {
	w := &Wrapper{}
	require.NoError(t, w.Prepare(map[string]any{"url": "https://example.com"}))

	raw := &protocol.RawOutput{
		Stdout: []byte(`{"type":"response","url":"https://example.com/admin","status":301}
{"type":"statistics","requests":1000}
garbage line
{"type":"response","url":"https://example.com/backup.zip","status":200}
`),
	}

	result, err := w.ParseOutput(raw)
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "https://example.com/admin", result.Records[0]["url"])
}
