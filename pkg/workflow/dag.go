package workflow

import (
	"github.com/probeflow/probeflow/pkg/models"
)

// dependencyEdges maps each node id to the ids of the nodes it depends on,
// derived from dataset names: an edge exists from producer to consumer when
// the consumer requires a dataset the producer outputs. A node producing a
// dataset it also requires does not edge to itself; the validator rejects
// that shape unless another producer or a seed covers the input.
func dependencyEdges(spec *models.WorkflowSpec) map[string][]string {
	producers := make(map[string][]string)

	for _, node := range spec.Nodes {
		for _, output := range node.Outputs {
			producers[output] = append(producers[output], node.ID)
		}
	}

	deps := make(map[string][]string, len(spec.Nodes))

	for _, node := range spec.Nodes {
		seen := make(map[string]bool)

		for _, required := range node.Requires {
			for _, producer := range producers[required] {
				if producer != node.ID && !seen[producer] {
					seen[producer] = true
					deps[node.ID] = append(deps[node.ID], producer)
				}
			}
		}
	}

	return deps
}

// topologicalOrder returns the node execution order via Kahn's algorithm.
// Ready nodes are taken in declaration order, which makes the schedule
// deterministic for a given document. The second return lists the nodes
// left inside a cycle, empty when the DAG is acyclic.
func topologicalOrder(spec *models.WorkflowSpec) ([]*models.NodeSpec, []string) {
	deps := dependencyEdges(spec)

	indegree := make(map[string]int, len(spec.Nodes))
	dependents := make(map[string][]string)

	for _, node := range spec.Nodes {
		indegree[node.ID] = len(deps[node.ID])
		for _, dep := range deps[node.ID] {
			dependents[dep] = append(dependents[dep], node.ID)
		}
	}

	order := make([]*models.NodeSpec, 0, len(spec.Nodes))
	done := make(map[string]bool, len(spec.Nodes))

	for len(order) < len(spec.Nodes) {
		// First-declared ready node wins, so ties between independent
		// branches always resolve to document order.
		var next *models.NodeSpec

		for _, node := range spec.Nodes {
			if !done[node.ID] && indegree[node.ID] == 0 {
				next = node
				break
			}
		}

		if next == nil {
			break
		}

		done[next.ID] = true
		order = append(order, next)

		for _, dependent := range dependents[next.ID] {
			indegree[dependent]--
		}
	}

	var cyclic []string

	for _, node := range spec.Nodes {
		if !done[node.ID] {
			cyclic = append(cyclic, node.ID)
		}
	}

	return order, cyclic
}

// transitiveDependents returns every node downstream of the given node,
// directly or through intermediaries.
func transitiveDependents(spec *models.WorkflowSpec, nodeID string) map[string]bool {
	deps := dependencyEdges(spec)

	dependents := make(map[string][]string)
	for node, nodeDeps := range deps {
		for _, dep := range nodeDeps {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	result := make(map[string]bool)
	queue := []string{nodeID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dependent := range dependents[current] {
			if !result[dependent] {
				result[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}

	return result
}
