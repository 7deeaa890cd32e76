package oracle

import (
	"math/big"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/model"
)

// Outcome is how a step settled.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	// OutcomeWaited marks a time advance, which sends no transaction.
	OutcomeWaited Outcome = "waited"
	OutcomeFailed Outcome = "failed"
)

// StepRecord describes one executed command.
type StepRecord struct {
	Index   int             `json:"index"`
	Command command.Command `json:"command"`
	Outcome Outcome         `json:"outcome"`
	// Reasons is the model's rejection reasons, empty when it accepts.
	Reasons []command.Reason `json:"reasons,omitempty"`
	// Error is the ledger error text for rejections and failures.
	Error string `json:"error,omitempty"`
	// Block is the block the command's transaction landed in, if any.
	Block   uint64   `json:"block,omitempty"`
	GasUsed uint64   `json:"gas_used,omitempty"`
	Fee     *big.Int `json:"fee,omitempty"`
	// Now is the model chain time after the step.
	Now uint64 `json:"now"`
}

// Report is the result of running a sequence.
type Report struct {
	// Commands is the sequence as given, macros unexpanded.
	Commands []command.Command
	// Steps has one record per executed command, macros expanded.
	Steps []StepRecord
	// FailedAt is the index in Commands of the command that failed, or -1.
	FailedAt int
	Failure  *Failure
	Initial  *model.State
	Final    *model.State
}

// Failed reports whether the run stopped on a failure.
func (r *Report) Failed() bool {
	return r.Failure != nil
}

// Outcomes returns the outcome of every step, in order.
func (r *Report) Outcomes() []Outcome {
	out := make([]Outcome, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Outcome
	}
	return out
}

// Count returns how many steps settled with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == o {
			n++
		}
	}
	return n
}

// Executed returns the expanded command sequence that actually ran.
func (r *Report) Executed() []command.Command {
	out := make([]command.Command, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Command
	}
	return out
}
