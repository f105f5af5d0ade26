// Package workflow parses, validates and executes scan workflow DAGs.
package workflow

import (
	"fmt"
	"strings"
)

// CyclicDependencyError names the nodes participating in a dependency cycle.
type CyclicDependencyError struct {
	Nodes []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("workflow has a dependency cycle involving nodes: %s", strings.Join(e.Nodes, ", "))
}

// UnresolvedInputError names a node requiring a dataset no node produces and
// no seed provides.
type UnresolvedInputError struct {
	NodeID  string
	Dataset string
}

func (e *UnresolvedInputError) Error() string {
	return fmt.Sprintf("node %s requires dataset %q which no node produces and no seed provides", e.NodeID, e.Dataset)
}

// UnknownNodeTypeError names a node whose type has no registered plugin.
type UnknownNodeTypeError struct {
	NodeID string
	Type   string
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("node %s has unknown type %q", e.NodeID, e.Type)
}

// DuplicateNodeIDError names a node id declared more than once.
type DuplicateNodeIDError struct {
	NodeID string
}

func (e *DuplicateNodeIDError) Error() string {
	return fmt.Sprintf("node id %q is declared more than once", e.NodeID)
}

// ValidationResult accumulates every validation error of a spec so authors
// can fix a broken document in one pass instead of one error at a time.
type ValidationResult struct {
	Errors []error
}

// Valid reports whether validation found no errors.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) add(err error) {
	r.Errors = append(r.Errors, err)
}

// Error joins all accumulated errors into one message.
func (r *ValidationResult) Error() string {
	if r.Valid() {
		return "workflow spec is valid"
	}

	messages := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("workflow spec has %d validation errors: %s", len(r.Errors), strings.Join(messages, "; "))
}
