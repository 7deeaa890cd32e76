package oracle

import (
	"errors"
	"fmt"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/model"
)

// FailureCode categorizes why a run stopped.
type FailureCode string

const (
	// CodeUnexpectedRejection means the model accepted a command the
	// ledger rejected.
	CodeUnexpectedRejection FailureCode = "UNEXPECTED_REJECTION"

	// CodeUnexpectedSuccess means the ledger accepted a command the model
	// rejects.
	CodeUnexpectedSuccess FailureCode = "UNEXPECTED_SUCCESS"

	// CodeUnexpectedError means execution failed in a way that is not a
	// recognized rejection, or a ledger read failed.
	CodeUnexpectedError FailureCode = "UNEXPECTED_ERROR"

	// CodePostconditionMismatch means a field read after an accepted
	// command differs from the prediction.
	CodePostconditionMismatch FailureCode = "POSTCONDITION_MISMATCH"

	// CodeInvariantViolation means the predicted state broke a model
	// invariant.
	CodeInvariantViolation FailureCode = "INVARIANT_VIOLATION"

	// CodeUnresolvedBranch means the ledger accepted a purchase from a
	// KYC-rejected investor, an outcome the model does not predict.
	CodeUnresolvedBranch FailureCode = "UNRESOLVED_BRANCH"
)

// Failure is a fatal divergence between the ledger and the model.
type Failure struct {
	Code FailureCode

	// Step is the index of the failing command in the executed sequence.
	Step    int
	Command command.Command

	// State is the model state right before the command ran.
	State *model.State

	// Reasons are the precondition results for the command.
	Reasons []command.Reason

	Err error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s at step %d: %s", f.Code, f.Step, f.Command)
	if len(f.Reasons) > 0 {
		msg += fmt.Sprintf(" (reasons: %v)", command.Strings(f.Reasons))
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(code FailureCode, step int, c command.Command, st *model.State, reasons []command.Reason, err error) *Failure {
	return &Failure{
		Code:    code,
		Step:    step,
		Command: c.Clone(),
		State:   st.Clone(),
		Reasons: append([]command.Reason(nil), reasons...),
		Err:     err,
	}
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// CodeOf returns the failure code carried by err, or "" if err is not a
// *Failure.
func CodeOf(err error) FailureCode {
	if f, ok := AsFailure(err); ok {
		return f.Code
	}
	return ""
}

// IsUnexpectedRejection reports whether err is a model-accepted command
// that the ledger rejected.
func IsUnexpectedRejection(err error) bool {
	return CodeOf(err) == CodeUnexpectedRejection
}

// IsUnexpectedSuccess reports whether err is a ledger-accepted command the
// model rejects.
func IsUnexpectedSuccess(err error) bool {
	return CodeOf(err) == CodeUnexpectedSuccess
}

// IsPostconditionMismatch reports whether err is a field mismatch.
func IsPostconditionMismatch(err error) bool {
	return CodeOf(err) == CodePostconditionMismatch
}

// IsInvariantViolation reports whether err is a broken model invariant.
func IsInvariantViolation(err error) bool {
	return CodeOf(err) == CodeInvariantViolation
}

// IsUnresolvedBranch reports whether err is an unpredicted branch.
func IsUnresolvedBranch(err error) bool {
	return CodeOf(err) == CodeUnresolvedBranch
}
