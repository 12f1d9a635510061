package dag

import (
	"fmt"
)

// TopologicalSorter groups the nodes of a directed graph into dependency
// levels.
type TopologicalSorter struct {
	adjacency map[string][]string // node -> children
	inDegree  map[string]int      // node -> number of incoming edges
}

// NewTopologicalSorter creates a sorter from a graph structure. Each edge is
// {from, to}.
func NewTopologicalSorter(nodes []string, edges [][2]string) *TopologicalSorter {
	ts := &TopologicalSorter{
		adjacency: make(map[string][]string),
		inDegree:  make(map[string]int),
	}

	for _, node := range nodes {
		ts.inDegree[node] = 0
	}

	for _, edge := range edges {
		from, to := edge[0], edge[1]
		ts.adjacency[from] = append(ts.adjacency[from], to)
		ts.inDegree[to]++
	}

	return ts
}

// GetLevels returns nodes grouped by their topological level.
// Level 0 contains nodes with no incoming edges, level 1 contains nodes
// that only depend on level 0, etc. Order within a level is unspecified.
// It fails when the graph has a cycle.
func (ts *TopologicalSorter) GetLevels() ([][]string, error) {
	inDegree := make(map[string]int, len(ts.inDegree))
	for k, v := range ts.inDegree {
		inDegree[k] = v
	}

	var levels [][]string

	for len(inDegree) > 0 {
		var currentLevel []string
		for node, degree := range inDegree {
			if degree == 0 {
				currentLevel = append(currentLevel, node)
			}
		}

		if len(currentLevel) == 0 {
			return nil, fmt.Errorf("cycle detected among %d remaining nodes", len(inDegree))
		}

		levels = append(levels, currentLevel)

		for _, node := range currentLevel {
			delete(inDegree, node)
			for _, child := range ts.adjacency[node] {
				if deg, exists := inDegree[child]; exists {
					inDegree[child] = deg - 1
				}
			}
		}
	}

	return levels, nil
}
