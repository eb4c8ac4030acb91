// Package allocation prorates task production and costs across periods.
//
// Scalar quantities attached to a task (production volumes, harvesting
// costs) are spread over the periods its occupied interval overlaps, in
// proportion to the hours spent in each period. Movement costs between
// consecutive tasks on a team are events: they are charged in full to the
// window that contains the movement instant.
//
// Every function is total. Empty inputs, unassigned tasks and zero-width
// windows give zero results. Maps are always walked in sorted key order so
// that repeated calls produce bit-identical sums.
//
// This is part of the Functional Core - all functions are pure with no I/O.
package allocation
