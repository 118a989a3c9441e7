package engine

import "github.com/flowrig/flowrig/model"

// BuildAdjacency derives the outgoing and incoming edge indexes used by the
// traversal. Disabled edges are excluded. Declaration order is preserved within
// each bucket; fan-out on a port is followed in declaration order. Edges that
// reference unknown nodes are kept as-is and simply produce dead lookups at
// traversal time.
func BuildAdjacency(edges []model.Edge) (map[string][]model.Edge, map[string][]model.Edge) {
	outEdges := make(map[string][]model.Edge)
	inEdges := make(map[string][]model.Edge)
	for _, edge := range edges {
		if edge.Disabled {
			continue
		}
		outEdges[edge.SourceNodeId] = append(outEdges[edge.SourceNodeId], edge)
		inEdges[edge.TargetNodeId] = append(inEdges[edge.TargetNodeId], edge)
	}
	return outEdges, inEdges
}
