package store

import (
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/oracle"
)

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// passingRun is a two-step run that ends without a failure.
func passingRun(seed uint64) oracle.RunResult {
	cmds := []command.Command{
		command.WaitTime(60),
		command.BuyTokens(1, big.NewInt(5)),
	}
	return oracle.RunResult{
		Seed: seed,
		Report: &oracle.Report{
			Commands: cmds,
			FailedAt: -1,
			Steps: []oracle.StepRecord{
				{Index: 0, Command: cmds[0], Outcome: oracle.OutcomeWaited, Block: 1, Now: 60},
				{Index: 1, Command: cmds[1], Outcome: oracle.OutcomeAccepted, Block: 2, GasUsed: 91200, Fee: big.NewInt(91200), Now: 60},
			},
		},
	}
}

// failingRun stops on an unexpected success at its second step and
// carries a one-command shrunk reproduction.
func failingRun(seed uint64) oracle.RunResult {
	pause := command.PauseCrowdsale(0, true)
	buy := command.BuyTokens(2, big.NewInt(10))
	failure := &oracle.Failure{
		Code:    oracle.CodeUnexpectedSuccess,
		Step:    1,
		Command: buy,
		Reasons: []command.Reason{command.ReasonPaused},
		Err:     errors.New("ledger accepted"),
	}
	shrunkFailure := *failure
	shrunkFailure.Step = 1
	return oracle.RunResult{
		Seed: seed,
		Report: &oracle.Report{
			Commands: []command.Command{pause, buy, command.WaitTime(10)},
			FailedAt: 1,
			Failure:  failure,
			Steps: []oracle.StepRecord{
				{Index: 0, Command: pause, Outcome: oracle.OutcomeAccepted, Block: 1, GasUsed: 27600, Fee: big.NewInt(27600)},
				{Index: 1, Command: buy, Outcome: oracle.OutcomeFailed, Reasons: failure.Reasons, Error: failure.Error()},
			},
		},
		Shrunk: &oracle.Report{
			Commands: []command.Command{pause, buy},
			FailedAt: 1,
			Failure:  &shrunkFailure,
		},
		ShrinkAttempts: 7,
	}
}
