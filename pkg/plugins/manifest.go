package plugins

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/probeflow/probeflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// manifestSchema is the JSON schema every plugin manifest file must satisfy
// before the struct is even unmarshalled.
var manifestSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":        map[string]any{"type": "string", "minLength": 1, "pattern": "^[A-Za-z0-9_.-]+$"},
		"version":     map[string]any{"type": "string", "minLength": 1},
		"description": map[string]any{"type": "string"},
		"author":      map[string]any{"type": "string"},
		"category": map[string]any{
			"type": "string",
			"enum": []string{"detector", "enricher", "analytics"},
		},
		"entrypoint":     map[string]any{"type": "string", "minLength": 1},
		"dependencies":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"config_schema":  map[string]any{"type": "object"},
		"code_hash":      map[string]any{"type": "string", "minLength": 1},
		"signature":      map[string]any{"type": "string"},
		"signature_type": map[string]any{"type": "string"},
		"created_at":     map[string]any{"type": "string"},
		"expires_at":     map[string]any{"type": "string"},
	},
	"required": []string{"name", "version", "category", "entrypoint", "code_hash"},
}

// parseManifest validates raw manifest JSON against the schema and decodes it.
func parseManifest(raw []byte) (*models.PluginManifest, error) {
	schemaLoader := gojsonschema.NewGoLoader(manifestSchema)
	dataLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return nil, err
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, &LoadError{
			Op:  "Discover",
			Err: fmt.Errorf("%w: %s", ErrManifestInvalid, strings.Join(details, "; ")),
		}
	}

	var manifest models.PluginManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// ArtifactHash computes the sha256 content hash of the artifact at path,
// returned as lowercase hex.
func ArtifactHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// normalizeHash strips an optional "sha256:" prefix and lowercases.
func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimPrefix(hash, "sha256:"))
}
