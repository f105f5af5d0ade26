package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeflow/probeflow/pkg/testutil"
)

type stubTypes map[string]bool

func (s stubTypes) Has(nodeType string) bool { return s[nodeType] }

func TestValidateAccumulatesAllErrors(t *testing.T) {
	spec := testutil.CreateTestSpec(
		testutil.CreateTestNode("dup", "scan.known", testutil.WithRequires("ghost")),
		testutil.CreateTestNode("dup", "scan.unknown"),
	)

	v := NewValidator(stubTypes{"scan.known": true})
	result := v.Validate(spec, nil)

	require.False(t, result.Valid())

	var (
		dupes      int
		unknowns   int
		unresolved int
	)

	for _, err := range result.Errors {
		switch err.(type) {
		case *DuplicateNodeIDError:
			dupes++
		case *UnknownNodeTypeError:
			unknowns++
		case *UnresolvedInputError:
			unresolved++
		}
	}

	assert.Equal(t, 1, dupes, "one duplicate id error")
	assert.Equal(t, 1, unknowns, "one unknown type error")
	assert.Equal(t, 1, unresolved, "one unresolved input error")
}

func TestValidateValidSpec(t *testing.T) {
	spec := testutil.CreateTestSpec(
		testutil.CreateTestNode("a", "scan.known", testutil.WithOutputs("data")),
		testutil.CreateTestNode("b", "scan.known", testutil.WithRequires("data")),
	)

	v := NewValidator(stubTypes{"scan.known": true})

	assert.True(t, v.Validate(spec, nil).Valid())
}

func TestValidateSelfProducedInputIsUnresolved(t *testing.T) {
	spec := testutil.CreateTestSpec(
		testutil.CreateTestNode("loop", "scan.known",
			testutil.WithRequires("x"),
			testutil.WithOutputs("x"),
		),
	)

	v := NewValidator(stubTypes{"scan.known": true})
	result := v.Validate(spec, nil)

	require.False(t, result.Valid(), "a node cannot satisfy its own requirement")

	var inputErr *UnresolvedInputError
	require.ErrorAs(t, result.Errors[0], &inputErr)
	assert.Equal(t, "loop", inputErr.NodeID)
	assert.Equal(t, "x", inputErr.Dataset)
}

func TestValidateSelfProducedInputSatisfiedByOtherProducer(t *testing.T) {
	spec := testutil.CreateTestSpec(
		testutil.CreateTestNode("source", "scan.known", testutil.WithOutputs("x")),
		testutil.CreateTestNode("refine", "scan.known",
			testutil.WithRequires("x"),
			testutil.WithOutputs("x"),
		),
	)

	v := NewValidator(stubTypes{"scan.known": true})

	assert.True(t, v.Validate(spec, nil).Valid(), "another producer resolves the input")
}

func TestValidateSeedSatisfiesSelfProducedInput(t *testing.T) {
	spec := testutil.CreateTestSpec(
		testutil.CreateTestNode("loop", "scan.known",
			testutil.WithRequires("x"),
			testutil.WithOutputs("x"),
		),
	)

	v := NewValidator(stubTypes{"scan.known": true})

	assert.True(t, v.Validate(spec, []string{"x"}).Valid())
}

func TestValidateNilTypesSkipsResolution(t *testing.T) {
	spec := testutil.CreateTestSpec(
		testutil.CreateTestNode("a", "anything.goes"),
	)

	v := NewValidator(nil)

	assert.True(t, v.Validate(spec, nil).Valid())
}

func TestValidateStructuralRequirements(t *testing.T) {
	spec := testutil.CreateTestSpec()
	spec.Name = "x"

	v := NewValidator(nil)
	result := v.Validate(spec, nil)

	require.False(t, result.Valid())
	assert.GreaterOrEqual(t, len(result.Errors), 2, "short name and empty node list both reported")
}

func TestTopologicalOrderDiamond(t *testing.T) {
	spec := testutil.CreateTestSpec(
		testutil.CreateTestNode("root", "t", testutil.WithOutputs("seed")),
		testutil.CreateTestNode("left", "t", testutil.WithRequires("seed"), testutil.WithOutputs("l")),
		testutil.CreateTestNode("right", "t", testutil.WithRequires("seed"), testutil.WithOutputs("r")),
		testutil.CreateTestNode("join", "t", testutil.WithRequires("l", "r")),
	)

	order, cyclic := topologicalOrder(spec)
	require.Empty(t, cyclic)
	require.Len(t, order, 4)

	ids := make([]string, 0, len(order))
	for _, node := range order {
		ids = append(ids, node.ID)
	}

	assert.Equal(t, []string{"root", "left", "right", "join"}, ids)
}

func TestTransitiveDependents(t *testing.T) {
	spec := testutil.CreateTestSpec(
		testutil.CreateTestNode("root", "t", testutil.WithOutputs("a")),
		testutil.CreateTestNode("mid", "t", testutil.WithRequires("a"), testutil.WithOutputs("b")),
		testutil.CreateTestNode("leaf", "t", testutil.WithRequires("b")),
		testutil.CreateTestNode("other", "t"),
	)

	dependents := transitiveDependents(spec, "root")

	assert.True(t, dependents["mid"])
	assert.True(t, dependents["leaf"])
	assert.False(t, dependents["other"])
}
