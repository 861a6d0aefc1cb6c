package schema

import (
	pkgerrors "entstore/pkg/errors"
)

// Edge is one reference between two entity types, as declared by a field.
type Edge struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Operator  Operator `json:"operator"`
	FieldName string   `json:"fieldName"` // suffixed with "?" when the field is optional
	IsArray   bool     `json:"isArray"`
}

// TypeDeps holds the dependency sets of one entity type.
type TypeDeps struct {
	DependsOn     []string `json:"dependsOn"`     // hard: required -> references
	SoftDependsOn []string `json:"softDependsOn"` // optional ->, ~>, <~
	DependedOnBy  []string `json:"dependedOnBy"`  // reverse of hard edges
}

// DependencyGraph is the type-level dependency structure derived from a
// schema. Hard edges come from required exact forward references; fuzzy and
// optional references only contribute soft edges, and reverse references
// contribute none.
type DependencyGraph struct {
	order []string
	deps  map[string]*TypeDeps
	edges []Edge
	hard  map[string][]string
	soft  map[string][]string
}

// BuildGraph derives the dependency graph from a parsed schema.
func BuildGraph(s *Schema) *DependencyGraph {
	g := &DependencyGraph{
		deps: make(map[string]*TypeDeps, len(s.Entities)),
		hard: make(map[string][]string),
		soft: make(map[string][]string),
	}
	for _, e := range s.Entities {
		g.order = append(g.order, e.Name)
		g.deps[e.Name] = &TypeDeps{}
	}

	for _, e := range s.Entities {
		for _, f := range e.Fields {
			if !f.IsRef() {
				continue
			}

			fieldName := f.Name
			if f.IsOptional {
				fieldName += "?"
			}
			for _, target := range f.Targets() {
				g.edges = append(g.edges, Edge{
					From:      e.Name,
					To:        target,
					Operator:  f.Operator,
					FieldName: fieldName,
					IsArray:   f.IsArray,
				})

				switch f.Operator {
				case OpForward:
					if f.IsOptional {
						g.addSoft(e.Name, target)
					} else {
						g.addHard(e.Name, target)
					}
				case OpFuzzyForward, OpFuzzyReverse:
					g.addSoft(e.Name, target)
				case OpReverse:
					// The parent creates the child; no forward dependency.
				}
			}
		}
	}
	return g
}

func (g *DependencyGraph) addHard(from, to string) {
	if contains(g.hard[from], to) {
		return
	}
	g.hard[from] = append(g.hard[from], to)
	g.deps[from].DependsOn = append(g.deps[from].DependsOn, to)
	if d := g.deps[to]; d != nil && !contains(d.DependedOnBy, from) {
		d.DependedOnBy = append(d.DependedOnBy, from)
	}
}

func (g *DependencyGraph) addSoft(from, to string) {
	if contains(g.soft[from], to) {
		return
	}
	g.soft[from] = append(g.soft[from], to)
	g.deps[from].SoftDependsOn = append(g.deps[from].SoftDependsOn, to)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Deps returns the dependency sets for one type, or nil for an unknown type.
func (g *DependencyGraph) Deps(typeName string) *TypeDeps {
	return g.deps[typeName]
}

// Edges returns all declared reference edges in declaration order.
func (g *DependencyGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// TopologicalSort returns the types reachable from root ordered so that
// every hard dependency precedes its dependent. With ignoreOptional false,
// soft edges are traversed too, but a back-edge is only an error when it is
// hard; soft cycles are linearized silently.
func (g *DependencyGraph) TopologicalSort(root string, ignoreOptional bool) ([]string, error) {
	if g.deps[root] == nil {
		return nil, pkgerrors.NewNotFoundError("entity type " + root)
	}

	const (
		white = 0 // unvisited
		grey  = 1 // on the current DFS path
		black = 2 // done
	)
	state := make(map[string]int)
	var order []string
	var path []string

	var visit func(t string) error
	visit = func(t string) error {
		state[t] = grey
		path = append(path, t)

		for _, dep := range g.successors(t, ignoreOptional) {
			if g.deps[dep] == nil {
				continue // target type not declared in this schema
			}
			switch state[dep] {
			case black:
				continue
			case grey:
				if contains(g.hard[t], dep) {
					return pkgerrors.NewCircularDependencyError(cyclePath(path, dep))
				}
				// Soft back-edge: accept and linearize.
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[t] = black
		order = append(order, t)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}

// successors returns the outgoing dependency targets of t in declaration
// order: hard edges always, soft edges when requested.
func (g *DependencyGraph) successors(t string, ignoreOptional bool) []string {
	if ignoreOptional {
		return g.hard[t]
	}
	out := append([]string{}, g.hard[t]...)
	for _, s := range g.soft[t] {
		if !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// cyclePath extracts the cycle [start, ..., start] from the DFS path.
func cyclePath(path []string, start string) []string {
	for i, t := range path {
		if t == start {
			cycle := append([]string{}, path[i:]...)
			return append(cycle, start)
		}
	}
	return []string{start, start}
}

// DetectCycles enumerates all simple cycles over hard edges. Each cycle is
// reported once, as a path that starts and ends at its smallest-ordered
// member. A DAG yields an empty result.
func (g *DependencyGraph) DetectCycles() [][]string {
	indexOf := make(map[string]int, len(g.order))
	for i, t := range g.order {
		indexOf[t] = i
	}

	var cycles [][]string
	for i, start := range g.order {
		onPath := map[string]bool{start: true}
		path := []string{start}

		var dfs func(t string)
		dfs = func(t string) {
			for _, next := range g.hard[t] {
				if indexOf[next] < i {
					// Cycles through earlier types were found when they were
					// the start node.
					continue
				}
				if next == start {
					cycle := append([]string{}, path...)
					cycles = append(cycles, append(cycle, start))
					continue
				}
				if onPath[next] {
					continue
				}
				onPath[next] = true
				path = append(path, next)
				dfs(next)
				path = path[:len(path)-1]
				onPath[next] = false
			}
		}
		dfs(start)
	}
	return cycles
}

// ParallelGroups layers the types reachable from root so that every hard
// dependency of a type lies in an earlier layer. Layer 0 holds the types
// with no hard dependencies. Ties within a layer keep schema declaration
// order. A hard cycle among the reachable types is an error.
func (g *DependencyGraph) ParallelGroups(root string) ([][]string, error) {
	sorted, err := g.TopologicalSort(root, true)
	if err != nil {
		return nil, err
	}

	reachable := make(map[string]bool, len(sorted))
	for _, t := range sorted {
		reachable[t] = true
	}

	layer := make(map[string]int, len(sorted))
	for _, t := range sorted {
		// sorted places dependencies first, so dependency layers are known.
		max := 0
		for _, dep := range g.hard[t] {
			if !reachable[dep] {
				continue
			}
			if layer[dep]+1 > max {
				max = layer[dep] + 1
			}
		}
		layer[t] = max
	}

	depth := 0
	for _, l := range layer {
		if l > depth {
			depth = l
		}
	}
	groups := make([][]string, depth+1)
	for _, t := range g.order {
		if reachable[t] {
			groups[layer[t]] = append(groups[layer[t]], t)
		}
	}
	return groups, nil
}
