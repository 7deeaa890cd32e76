// Package sequence generates command sequences from a seed and shrinks
// failing ones.
//
// Generation threads a shadow copy of the model through every drawn command
// so later draws see earlier effects: beneficiaries with pending deposits,
// burns sized to real balances, the current role holders. The same seed and
// starting state always yield the same sequence.
package sequence
