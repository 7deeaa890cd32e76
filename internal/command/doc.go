// Package command is the catalog of crowdsale commands.
//
// Every command kind has a Spec made of four parts:
//
//   - Generate draws a random instance from the current reference state.
//   - Precondition is pure and lists every rule the command breaks; an empty
//     list means the ledger must accept it.
//   - Transition is pure and returns the next reference state after an
//     accepted command, never mutating its input.
//   - Execute sends the command to a ledger.
//
// Checks names the observable fields a successful command touches so the
// oracle can compare them against the ledger afterwards.
//
// Keeping precondition and transition pure lets the same catalog run without
// any ledger at all (see Apply), which the sequence generator uses to thread a
// shadow state while it builds command sequences.
package command
