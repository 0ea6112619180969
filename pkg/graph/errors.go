package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntryPoint is returned by Compile when SetEntryPoint was never called.
	ErrNoEntryPoint = errors.New("graph has no entry point")

	// ErrEmptyGraph is returned by Compile for a graph without nodes, or whose
	// entry point is END.
	ErrEmptyGraph = errors.New("graph is empty")

	// ErrInvalidNodeName is returned by AddNode for an empty name or END.
	ErrInvalidNodeName = errors.New("invalid node name")
)

// DuplicateNodeError is returned by AddNode when the name is already registered.
type DuplicateNodeError struct {
	Node string
}

func (e DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %q already registered", e.Node)
}

// UnknownNodeError is returned when an entry point, edge source or edge
// destination names a node that was never registered.
type UnknownNodeError struct {
	Node string
}

func (e UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.Node)
}

// DuplicateEdgeError is returned when a second outgoing rule is added to a
// node. Every node has exactly one rule: a fixed edge or a conditional edge.
type DuplicateEdgeError struct {
	From string
}

func (e DuplicateEdgeError) Error() string {
	return fmt.Sprintf("node %q already has an outgoing edge", e.From)
}

// MissingEdgeError is returned by Compile when a node has no outgoing rule.
type MissingEdgeError struct {
	Node string
}

func (e MissingEdgeError) Error() string {
	return fmt.Sprintf("node %q has no outgoing edge", e.Node)
}

// UnmappedRouteError is returned by Invoke when a decision function yields a
// route key missing from its route table. The run stops at Node.
type UnmappedRouteError struct {
	Node string
	Key  string
}

func (e UnmappedRouteError) Error() string {
	return fmt.Sprintf("node %q produced unmapped route key %q", e.Node, e.Key)
}

// StepLimitError is returned by Invoke when a run would execute more nodes
// than the limit set with WithStepLimit.
type StepLimitError struct {
	Limit int

	// Node is the node that would have run next.
	Node string
}

func (e StepLimitError) Error() string {
	return fmt.Sprintf("step limit %d reached before node %q", e.Limit, e.Node)
}

// NodeError wraps a failure returned by a node operation or a decision
// function.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
