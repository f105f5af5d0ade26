package workflow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/probeflow/probeflow/pkg/models"
)

// NodeTypes answers whether a node type can be served, either by a native
// factory or a verified loadable plugin.
type NodeTypes interface {
	Has(nodeType string) bool
}

// Validator performs full structural validation of workflow specs.
type Validator struct {
	validate *validator.Validate
	types    NodeTypes
}

// NewValidator creates a spec validator. types may be nil, in which case
// node type resolution is skipped (useful for offline spec linting).
func NewValidator(types NodeTypes) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		types:    types,
	}
}

// Validate checks the whole spec and accumulates every problem it finds
// rather than stopping at the first. seeds names the datasets the caller
// will provide at run time.
func (v *Validator) Validate(spec *models.WorkflowSpec, seeds []string) *ValidationResult {
	result := &ValidationResult{}

	err := v.validate.Struct(spec)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ferr := range verrs {
				result.add(fmt.Errorf("field %s failed %q validation", ferr.Namespace(), ferr.Tag()))
			}
		} else {
			result.add(err)
		}
	}

	v.checkDuplicateIDs(spec, result)
	v.checkNodeTypes(spec, result)
	v.checkInputs(spec, seeds, result)
	v.checkCycles(spec, result)

	return result
}

func (v *Validator) checkDuplicateIDs(spec *models.WorkflowSpec, result *ValidationResult) {
	seen := make(map[string]bool, len(spec.Nodes))

	for _, node := range spec.Nodes {
		if seen[node.ID] {
			result.add(&DuplicateNodeIDError{NodeID: node.ID})
		}

		seen[node.ID] = true
	}
}

func (v *Validator) checkNodeTypes(spec *models.WorkflowSpec, result *ValidationResult) {
	if v.types == nil {
		return
	}

	for _, node := range spec.Nodes {
		if node.Type != "" && !v.types.Has(node.Type) {
			result.add(&UnknownNodeTypeError{NodeID: node.ID, Type: node.Type})
		}
	}
}

func (v *Validator) checkInputs(spec *models.WorkflowSpec, seeds []string, result *ValidationResult) {
	seeded := make(map[string]bool, len(seeds))

	for _, seed := range seeds {
		seeded[seed] = true
	}

	// producers counts how many nodes output each dataset. A node cannot
	// satisfy its own requirement: the input must come from another node or
	// from a seed.
	producers := make(map[string]int)

	for _, node := range spec.Nodes {
		for _, output := range node.Outputs {
			producers[output]++
		}
	}

	for _, node := range spec.Nodes {
		selfProduced := make(map[string]bool, len(node.Outputs))

		for _, output := range node.Outputs {
			selfProduced[output] = true
		}

		for _, required := range node.Requires {
			others := producers[required]
			if selfProduced[required] {
				others--
			}

			if !seeded[required] && others <= 0 {
				result.add(&UnresolvedInputError{NodeID: node.ID, Dataset: required})
			}
		}
	}
}

func (v *Validator) checkCycles(spec *models.WorkflowSpec, result *ValidationResult) {
	_, cyclic := topologicalOrder(spec)
	if len(cyclic) > 0 {
		sort.Strings(cyclic)
		result.add(&CyclicDependencyError{Nodes: cyclic})
	}
}
