package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/oracle"
	"github.com/roach88/saleoracle/internal/trace"
)

// RecordRun stores a completed run with its steps and failures and returns
// the new run's ID, a UUIDv7 unless the store was opened with another
// generator.
func (s *Store) RecordRun(ctx context.Context, res oracle.RunResult) (string, error) {
	rep := res.Report
	if rep == nil {
		return "", fmt.Errorf("record run: missing report")
	}

	commandsJSON, err := trace.MarshalCommands(rep.Commands)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	sequenceHash, err := trace.SequenceHash(rep.Commands)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	traceHash, err := trace.TraceHash(rep.Steps)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	var shrunkJSON sql.NullString
	if res.Shrunk != nil {
		data, err := trace.MarshalCommands(res.Shrunk.Commands)
		if err != nil {
			return "", fmt.Errorf("record run: shrunk: %w", err)
		}
		shrunkJSON = sql.NullString{String: string(data), Valid: true}
	}

	id := s.ids.Generate()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return "", fmt.Errorf("record run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, seed, sequence_hash, trace_hash, commands, failed, shrunk_commands, shrink_attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		seq,
		fmt.Sprint(res.Seed),
		sequenceHash,
		traceHash,
		string(commandsJSON),
		rep.Failed(),
		shrunkJSON,
		res.ShrinkAttempts,
	)
	if err != nil {
		return "", fmt.Errorf("record run: insert run: %w", err)
	}

	for _, step := range rep.Steps {
		if err := writeStep(ctx, tx, id, step); err != nil {
			return "", fmt.Errorf("record run: step %d: %w", step.Index, err)
		}
	}

	if rep.Failure != nil {
		if err := writeFailure(ctx, tx, id, false, rep.Failure); err != nil {
			return "", fmt.Errorf("record run: %w", err)
		}
	}
	if res.Shrunk != nil && res.Shrunk.Failure != nil {
		if err := writeFailure(ctx, tx, id, true, res.Shrunk.Failure); err != nil {
			return "", fmt.Errorf("record run: shrunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record run: commit: %w", err)
	}
	return id, nil
}

func writeStep(ctx context.Context, tx *sql.Tx, runID string, step oracle.StepRecord) error {
	cmdJSON, err := trace.Marshal(trace.Command(step.Command))
	if err != nil {
		return err
	}
	reasonsJSON, err := marshalReasons(step.Reasons)
	if err != nil {
		return err
	}
	fee := "0"
	if step.Fee != nil {
		fee = step.Fee.String()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO steps
		(run_id, idx, command, outcome, reasons, error, block, gas_used, fee, now)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		step.Index,
		string(cmdJSON),
		string(step.Outcome),
		reasonsJSON,
		step.Error,
		int64(step.Block),
		int64(step.GasUsed),
		fee,
		int64(step.Now),
	)
	return err
}

func writeFailure(ctx context.Context, tx *sql.Tx, runID string, shrunk bool, f *oracle.Failure) error {
	cmdJSON, err := trace.Marshal(trace.Command(f.Command))
	if err != nil {
		return fmt.Errorf("failure command: %w", err)
	}
	reasonsJSON, err := marshalReasons(f.Reasons)
	if err != nil {
		return fmt.Errorf("failure reasons: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO failures
		(run_id, shrunk, code, step, command, reasons, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		shrunk,
		string(f.Code),
		f.Step,
		string(cmdJSON),
		reasonsJSON,
		f.Error(),
	)
	if err != nil {
		return fmt.Errorf("insert failure: %w", err)
	}
	return nil
}

func marshalReasons(reasons []command.Reason) (string, error) {
	arr := make(trace.Array, len(reasons))
	for i, r := range reasons {
		arr[i] = trace.String(r)
	}
	data, err := trace.Marshal(arr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
