package graph

import (
	"context"
	"fmt"
)

// NodeType represents the type of a node in the graph
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeEnd       NodeType = "end"
	NodeTypeCondition NodeType = "condition"
	NodeTypeCustom    NodeType = "custom"
)

// NodeFunc is the function executed by a node. It receives the current state
// and returns the state handed to the next node.
type NodeFunc[S any] func(context.Context, S) (S, error)

// ConditionFunc evaluates a condition and returns a key of the node's NextMap
type ConditionFunc[S any] func(context.Context, S) (string, error)

// Middleware wraps the execution of a named node.
type Middleware[S any] func(name string, next NodeFunc[S]) NodeFunc[S]

// Node represents a node in the execution graph
type Node[S any] struct {
	Name      string
	Type      NodeType
	Execute   NodeFunc[S]
	Condition ConditionFunc[S]  // Only for condition nodes
	Next      string            // Successor for non-condition nodes
	NextMap   map[string]string // For condition nodes: condition result -> next node
}

// Graph is a state machine over a typed state. Exactly one node runs at a
// time; execution stops at the end node.
type Graph[S any] struct {
	nodes      map[string]*Node[S]
	startNode  string
	endNode    string
	maxVisits  int
	middleware []Middleware[S]
}

// NewGraph creates a new graph
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:     make(map[string]*Node[S]),
		maxVisits: 10,
	}
}

func (g *Graph[S]) validateNode(node *Node[S]) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}

	switch node.Type {
	case NodeTypeCondition:
		if node.Condition == nil {
			panic(fmt.Sprintf("condition node %s must have non-nil Condition function", node.Name))
		}
	case NodeTypeEnd, NodeTypeStart:
		// start and end nodes may be pass-through
	default:
		if node.Execute == nil {
			panic(fmt.Sprintf("node %s of type %s must have non-nil Execute function", node.Name, node.Type))
		}
	}
}

// AddNode adds a node to the graph
func (g *Graph[S]) AddNode(node *Node[S]) {
	g.validateNode(node)
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}

	g.nodes[node.Name] = node

	// Auto-set start and end nodes
	if node.Type == NodeTypeStart {
		g.startNode = node.Name
	}
	if node.Type == NodeTypeEnd {
		g.endNode = node.Name
	}
}

// SetStartNode sets the start node
func (g *Graph[S]) SetStartNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.startNode = name
}

// SetEndNode sets the end node
func (g *Graph[S]) SetEndNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.endNode = name
}

// Use appends middleware applied to every Execute call, outermost first.
func (g *Graph[S]) Use(mw ...Middleware[S]) {
	g.middleware = append(g.middleware, mw...)
}

// SetMaxVisits sets the maximum number of visits to a node
func (g *Graph[S]) SetMaxVisits(maxVisits int) {
	g.maxVisits = maxVisits
}

// GetNode returns a node by name
func (g *Graph[S]) GetNode(name string) (*Node[S], error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node %s not found", name)
	}
	return node, nil
}

// Validate checks that every edge points at an existing node.
func (g *Graph[S]) Validate() error {
	if g.startNode == "" {
		return fmt.Errorf("start node not set")
	}
	for _, node := range g.nodes {
		if node.Type == NodeTypeEnd || node.Name == g.endNode {
			continue
		}
		if node.Type == NodeTypeCondition {
			if len(node.NextMap) == 0 {
				return fmt.Errorf("condition node %s has no branches", node.Name)
			}
			for key, next := range node.NextMap {
				if _, ok := g.nodes[next]; !ok {
					return fmt.Errorf("node %s branch %q points to unknown node %s", node.Name, key, next)
				}
			}
			continue
		}
		if _, ok := g.nodes[node.Next]; !ok {
			return fmt.Errorf("node %s points to unknown node %q", node.Name, node.Next)
		}
	}
	return nil
}

// Execute runs the graph from the start node until the end node has run.
// The context is checked before every node.
func (g *Graph[S]) Execute(ctx context.Context, state S) (S, error) {
	if g.startNode == "" {
		return state, fmt.Errorf("start node not set")
	}

	visited := make(map[string]int)
	current := g.startNode
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, exists := g.nodes[current]
		if !exists {
			return state, fmt.Errorf("node %s not found", current)
		}

		// Detect runaway loops by counting how many times we revisit a node.
		visited[current]++
		if visited[current] > g.maxVisits {
			return state, fmt.Errorf("infinite loop detected at node %s", current)
		}

		if node.Type == NodeTypeCondition {
			result, err := node.Condition(ctx, state)
			if err != nil {
				return state, fmt.Errorf("error evaluating condition at node %s: %w", node.Name, err)
			}
			next := node.NextMap[result]
			if next == "" {
				return state, fmt.Errorf("no branch %q at node %s", result, node.Name)
			}
			current = next
			continue
		}

		if node.Execute != nil {
			next, err := g.wrap(node)(ctx, state)
			if err != nil {
				return next, fmt.Errorf("error executing node %s: %w", node.Name, err)
			}
			state = next
		}

		if node.Type == NodeTypeEnd || node.Name == g.endNode {
			return state, nil
		}
		if node.Next == "" {
			return state, fmt.Errorf("no next node specified for node %s", node.Name)
		}
		current = node.Next
	}
}

func (g *Graph[S]) wrap(node *Node[S]) NodeFunc[S] {
	fn := node.Execute
	for i := len(g.middleware) - 1; i >= 0; i-- {
		fn = g.middleware[i](node.Name, fn)
	}
	return fn
}

// Builder helps build graphs fluently
type Builder[S any] struct {
	graph *Graph[S]
}

// NewBuilder creates a new graph builder
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		graph: NewGraph[S](),
	}
}

// AddNode adds a node to the graph
func (b *Builder[S]) AddNode(name string, nodeType NodeType, execute NodeFunc[S]) *Builder[S] {
	b.graph.AddNode(&Node[S]{
		Name:    name,
		Type:    nodeType,
		Execute: execute,
	})
	return b
}

// AddConditionNode adds a condition node
func (b *Builder[S]) AddConditionNode(name string, condition ConditionFunc[S], nextMap map[string]string) *Builder[S] {
	b.graph.AddNode(&Node[S]{
		Name:      name,
		Type:      NodeTypeCondition,
		Condition: condition,
		NextMap:   nextMap,
	})
	return b
}

// AddEdge connects two nodes
func (b *Builder[S]) AddEdge(from, to string) *Builder[S] {
	if node, exists := b.graph.nodes[from]; exists {
		node.Next = to
	}
	return b
}

// Use registers node middleware.
func (b *Builder[S]) Use(mw ...Middleware[S]) *Builder[S] {
	b.graph.Use(mw...)
	return b
}

// SetStart sets the start node
func (b *Builder[S]) SetStart(name string) *Builder[S] {
	b.graph.SetStartNode(name)
	return b
}

// SetEnd sets the end node
func (b *Builder[S]) SetEnd(name string) *Builder[S] {
	b.graph.SetEndNode(name)
	return b
}

// Build validates and returns the graph.
func (b *Builder[S]) Build() (*Graph[S], error) {
	if err := b.graph.Validate(); err != nil {
		return nil, err
	}
	return b.graph, nil
}
