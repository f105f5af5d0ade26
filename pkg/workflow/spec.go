package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/probeflow/probeflow/pkg/models"
)

// ParseSpec decodes a workflow spec document. YAML is the primary format;
// JSON parses through the same decoder since it is a YAML subset, so both
// carry identical semantics.
func ParseSpec(data []byte) (*models.WorkflowSpec, error) {
	var spec models.WorkflowSpec

	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)

	err := decoder.Decode(&spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow spec: %w", err)
	}

	return &spec, nil
}

// ParseSpecFile loads and decodes a workflow spec from disk.
func ParseSpecFile(path string) (*models.WorkflowSpec, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow spec %s: %w", path, err)
	}

	return ParseSpec(data)
}

// EncodeSpec renders a spec back to YAML. Parsing the output yields an
// equivalent spec, so documents survive a load-edit-save cycle.
func EncodeSpec(spec *models.WorkflowSpec) ([]byte, error) {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow spec: %w", err)
	}

	return data, nil
}
