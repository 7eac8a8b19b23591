package node

import (
	"sort"
)

// Node is one stochastic quantity tracked by the sampler.
// The trace is owned by the sampler and must not be modified.
type Node struct {
	name  Name
	trace []float64
}

// New creates a node, parsing its name once.
func New(name string, trace []float64) *Node {
	return &Node{name: ParseName(name), trace: trace}
}

// Name returns the raw node name
func (n *Node) Name() string {
	return n.name.Raw
}

// Parsed returns the parsed name
func (n *Node) Parsed() Name {
	return n.name
}

// Trace returns the sampled values, one per post-burn-in iteration.
func (n *Node) Trace() []float64 {
	return n.trace
}

// Nodes is an ordered sequence of nodes.
type Nodes []*Node

// NodeMap maps node names to nodes.
type NodeMap map[string]*Node

// ToMap indexes the sequence by name. Later duplicates win.
func (ns Nodes) ToMap() NodeMap {
	m := make(NodeMap, len(ns))
	for _, n := range ns {
		m[n.Name()] = n
	}
	return m
}

// Names returns node names in sequence order.
func (ns Nodes) Names() []string {
	names := make([]string, len(ns))
	for i, n := range ns {
		names[i] = n.Name()
	}
	return names
}

// Sorted returns the nodes ordered by name.
func (m NodeMap) Sorted() Nodes {
	out := make(Nodes, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Keys returns the sorted key set.
func (m NodeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromTraces builds a map of nodes from name -> trace.
func FromTraces(traces map[string][]float64) NodeMap {
	m := make(NodeMap, len(traces))
	for name, tr := range traces {
		m[name] = New(name, tr)
	}
	return m
}

// Nodes returns the sequence itself so an in-memory model satisfies trace-source ports.
func (ns Nodes) Nodes() Nodes {
	return ns
}

// Traces returns the samples keyed by node name
func (ns Nodes) Traces() map[string][]float64 {
	out := make(map[string][]float64, len(ns))
	for _, n := range ns {
		out[n.Name()] = n.Trace()
	}
	return out
}
