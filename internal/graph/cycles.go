// Package graph runs graph algorithms over work item dependency edges.
package graph

import (
	"sort"

	"github.com/trackdownhq/trackdown/internal/types"
)

// DetectCycles finds circular dependencies in the directed graph whose nodes
// are all item IDs and whose edges are each item's dependencies list.
//
// Each cycle is returned as an ordered ID path closing back on its first
// node, e.g. [A B C A]. An empty result means the graph is acyclic. Edges
// pointing at unknown IDs are ignored here; referential integrity is the
// resolver's job. Detection only: no attempt is made to break cycles.
func DetectCycles(items map[string]*types.Item) [][]string {
	graph := make(map[string][]string, len(items))
	nodes := make([]string, 0, len(items))
	for id, item := range items {
		nodes = append(nodes, id)
		for _, dep := range item.Dependencies {
			if _, ok := items[dep]; ok {
				graph[id] = append(graph[id], dep)
			}
		}
	}
	// Deterministic traversal order so the same graph always reports the
	// same cycle rotations.
	sort.Strings(nodes)
	for _, edges := range graph {
		sort.Strings(edges)
	}

	var cycles [][]string
	visited := make(map[string]bool, len(nodes))
	recStack := make(map[string]bool)
	path := make([]string, 0)

	var dfs func(node string)
	dfs = func(node string) {
		visited[node] = true
		recStack[node] = true
		path = append(path, node)

		for _, neighbor := range graph[node] {
			if !visited[neighbor] {
				dfs(neighbor)
			} else if recStack[neighbor] {
				// Found a cycle: slice the path from the neighbor's first
				// occurrence and close it back on the neighbor.
				for i, n := range path {
					if n == neighbor {
						cycle := make([]string, 0, len(path)-i+1)
						cycle = append(cycle, path[i:]...)
						cycle = append(cycle, neighbor)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		path = path[:len(path)-1]
		recStack[node] = false
	}

	// Every unvisited node is a DFS root, so disconnected components and
	// items with no outgoing edges are all covered.
	for _, node := range nodes {
		if !visited[node] {
			dfs(node)
		}
	}

	return cycles
}
