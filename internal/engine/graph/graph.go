package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"pyinsight/internal/engine/parser"

	dgraph "github.com/dominikbraun/graph"
)

// CallEdge is one resolved caller -> callee relation. Calls counts the call
// sites collapsed into it.
type CallEdge struct {
	Caller *parser.Function
	Callee *parser.Function
	Calls  int
}

// ExternalCall is an unresolved call name and how often it was seen.
type ExternalCall struct {
	Name  string
	Count int
}

// CallGraph is the resolved call graph of one analysis. Unresolved calls are
// counted against an external bucket and never become vertices.
type CallGraph struct {
	mu sync.RWMutex
	g  dgraph.Graph[string, *parser.Function]

	order    []*parser.Function
	position map[string]int

	external         map[string]int
	externalByCaller map[string]int

	adjacency    map[string]map[string]dgraph.Edge[string]
	predecessors map[string]map[string]dgraph.Edge[string]
}

func NewCallGraph() *CallGraph {
	return &CallGraph{
		g:                dgraph.New(func(fn *parser.Function) string { return fn.ID() }, dgraph.Directed()),
		position:         make(map[string]int),
		external:         make(map[string]int),
		externalByCaller: make(map[string]int),
	}
}

func (c *CallGraph) AddFunction(fn *parser.Function) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.g.AddVertex(fn); err != nil {
		if errors.Is(err, dgraph.ErrVertexAlreadyExists) {
			return fmt.Errorf("duplicate function %s", fn.ID())
		}
		return err
	}
	c.position[fn.ID()] = len(c.order)
	c.order = append(c.order, fn)
	c.invalidate()
	return nil
}

// AddCall records one call site. Repeated calls between the same pair bump
// the edge weight instead of adding a parallel edge.
func (c *CallGraph) AddCall(caller, callee *parser.Function) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, to := caller.ID(), callee.ID()
	err := c.g.AddEdge(from, to, dgraph.EdgeWeight(1))
	if errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
		edge, getErr := c.g.Edge(from, to)
		if getErr != nil {
			return getErr
		}
		err = c.g.UpdateEdge(from, to, dgraph.EdgeWeight(edge.Properties.Weight+1))
	}
	if err != nil {
		return fmt.Errorf("add call %s -> %s: %w", from, to, err)
	}
	c.invalidate()
	return nil
}

func (c *CallGraph) AddExternal(caller *parser.Function, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.external[name]++
	c.externalByCaller[caller.ID()]++
}

// Functions returns all vertices in insertion order.
func (c *CallGraph) Functions() []*parser.Function {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*parser.Function(nil), c.order...)
}

func (c *CallGraph) Function(id string) (*parser.Function, bool) {
	fn, err := c.g.Vertex(id)
	if err != nil {
		return nil, false
	}
	return fn, true
}

// Edges returns every edge ordered by caller then callee insertion order.
func (c *CallGraph) Edges() []CallEdge {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureIndexes()

	edges := make([]CallEdge, 0)
	for _, caller := range c.order {
		for _, calleeID := range c.sortedIDs(c.adjacency[caller.ID()]) {
			edge := c.adjacency[caller.ID()][calleeID]
			edges = append(edges, CallEdge{
				Caller: caller,
				Callee: c.order[c.position[calleeID]],
				Calls:  edge.Properties.Weight,
			})
		}
	}
	return edges
}

// Callers returns the distinct callers of fn, self excluded.
func (c *CallGraph) Callers(fn *parser.Function) []*parser.Function {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureIndexes()
	return c.neighbours(fn.ID(), c.predecessors[fn.ID()])
}

// Callees returns the distinct callees of fn, self excluded.
func (c *CallGraph) Callees(fn *parser.Function) []*parser.Function {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureIndexes()
	return c.neighbours(fn.ID(), c.adjacency[fn.ID()])
}

// InDegree counts distinct callers other than fn itself.
func (c *CallGraph) InDegree(fn *parser.Function) int {
	return len(c.Callers(fn))
}

// OutDegree counts distinct callees other than fn itself.
func (c *CallGraph) OutDegree(fn *parser.Function) int {
	return len(c.Callees(fn))
}

// ExternalCount returns how many of fn's call sites stayed unresolved.
func (c *CallGraph) ExternalCount(fn *parser.Function) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.externalByCaller[fn.ID()]
}

// ExternalCalls returns the external bucket ordered by count, then name.
func (c *CallGraph) ExternalCalls() []ExternalCall {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ExternalCall, 0, len(c.external))
	for name, count := range c.external {
		out = append(out, ExternalCall{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (c *CallGraph) ExternalTotal() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, count := range c.external {
		total += count
	}
	return total
}

func (c *CallGraph) Size() int {
	size, err := c.g.Size()
	if err != nil {
		return 0
	}
	return size
}

func (c *CallGraph) invalidate() {
	c.adjacency = nil
	c.predecessors = nil
}

func (c *CallGraph) ensureIndexes() {
	if c.adjacency != nil && c.predecessors != nil {
		return
	}
	adjacency, err := c.g.AdjacencyMap()
	if err != nil {
		adjacency = map[string]map[string]dgraph.Edge[string]{}
	}
	predecessors, err := c.g.PredecessorMap()
	if err != nil {
		predecessors = map[string]map[string]dgraph.Edge[string]{}
	}
	c.adjacency, c.predecessors = adjacency, predecessors
}

func (c *CallGraph) neighbours(self string, edges map[string]dgraph.Edge[string]) []*parser.Function {
	out := make([]*parser.Function, 0, len(edges))
	for _, id := range c.sortedIDs(edges) {
		if id == self {
			continue
		}
		out = append(out, c.order[c.position[id]])
	}
	return out
}

func (c *CallGraph) sortedIDs(edges map[string]dgraph.Edge[string]) []string {
	ids := make([]string, 0, len(edges))
	for id := range edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return c.position[ids[i]] < c.position[ids[j]]
	})
	return ids
}
