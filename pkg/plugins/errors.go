// Package plugins discovers, verifies and executes pluggable detection,
// enrichment and analytics units under the security framework.
package plugins

import (
	"errors"
	"fmt"
)

var (
	// ErrPluginNotFound indicates no factory or manifest serves the node type.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrSignatureVerificationFailed indicates the plugin's artifact hash did
	// not match its manifest at discovery time; loading is blocked.
	ErrSignatureVerificationFailed = errors.New("signature verification failed")

	// ErrManifestInvalid indicates a manifest failed JSON or schema validation.
	ErrManifestInvalid = errors.New("invalid plugin manifest")

	// ErrManifestExpired indicates the manifest is past its expires_at.
	ErrManifestExpired = errors.New("plugin manifest expired")
)

// LoadError wraps plugin loading failures with operation context.
type LoadError struct {
	Op     string // operation being performed ("Discover", "Verify", "Load", "Execute")
	Plugin string // plugin name / node type if known
	Err    error
}

func (e *LoadError) Error() string {
	if e.Plugin != "" {
		return fmt.Sprintf("%s failed for plugin %s: %v", e.Op, e.Plugin, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
