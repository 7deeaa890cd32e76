package harness

import (
	"github.com/roach88/saleoracle/internal/model"
	"github.com/roach88/saleoracle/internal/oracle"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation and assertion held and the oracle
	// found no failure.
	Pass bool

	// Steps is the trace as read back from the run store.
	Steps []oracle.StepRecord

	// Errors lists every unmet expectation and assertion.
	Errors []string

	// Final is the predicted state after the last step.
	Final *model.State

	// Failure is set when the oracle stopped the run.
	Failure *oracle.Failure

	// RunID is the run's ID in the scenario's store.
	RunID string
}

// NewResult returns a passing result with no steps.
func NewResult() *Result {
	return &Result{Pass: true, Steps: []oracle.StepRecord{}, Errors: []string{}}
}

// AddError records a problem and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
