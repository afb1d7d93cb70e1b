// Package graph implements a stepwise, value-semantics property graph:
// a node table and an edge table with open-ended attributes, a current
// selection of node/edge IDs, traversal operations that derive new
// selections, deferred graph actions re-run after every mutation, and an
// append-only action log.
//
// Every operation consumes a *Graph and returns a new *Graph (or the same
// one, unchanged, on failure). There is no shared mutable state: callers
// chain operations, each call's output feeding the next call's input.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrInvalidGraph is returned when an operation receives a nil or
	// uninitialized graph value. Checked at the top of every public
	// operation.
	ErrInvalidGraph = errors.New("invalid graph value")

	// ErrReferentialIntegrity is returned when an edge references a node
	// that does not exist in the node table.
	ErrReferentialIntegrity = errors.New("edge references nonexistent node")

	// ErrNotFound is returned when an operation names a node or edge ID
	// that is not present in the table.
	ErrNotFound = errors.New("not found")

	// ErrEmptySelection is returned by with-selection operations invoked
	// with no active selection of the required kind.
	ErrEmptySelection = errors.New("no active selection")

	// ErrInvalidAttribute is returned by attribute-setting helpers when an
	// attribute is missing, non-numeric where a number is required, or a
	// filter expression fails to compile.
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrActionEval is returned when a deferred graph action fails at
	// evaluation time. The trigger mechanism reverts the whole batch.
	ErrActionEval = errors.New("graph action evaluation failed")

	// ErrNoTraversal is the "no result" sentinel for neighbor lookups on
	// seeds with no neighbors.
	ErrNoTraversal = errors.New("traversal produced no result")
)
