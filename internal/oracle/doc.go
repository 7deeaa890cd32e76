// Package oracle drives command sequences against a ledger and checks every
// observable effect against the reference model.
//
// A Driver owns one ledger session and the model state predicted for it.
// For each command it evaluates the precondition, executes the call, and
// then either applies the transition and verifies the touched fields, or
// classifies the error as an expected rejection. Anything else stops the run
// with a *Failure carrying the command, the pre-command state and the cause.
//
// A Campaign repeats generated runs on fresh sessions and shrinks the first
// failing sequence.
package oracle
