package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/oracle"
	"github.com/roach88/saleoracle/internal/trace"
)

// Run is a stored run.
type Run struct {
	ID           string
	Seq          int64
	Seed         uint64
	SequenceHash string
	TraceHash    string
	Commands     []command.Command
	Failed       bool
	// Shrunk is nil unless the run failed and was shrunk.
	Shrunk         []command.Command
	ShrinkAttempts int
	Steps          []oracle.StepRecord
	Failure        *FailureRecord
	ShrunkFailure  *FailureRecord
}

// FailureRecord is the stored form of an oracle.Failure. The model state
// is not kept; replaying the run recreates it.
type FailureRecord struct {
	Code    oracle.FailureCode
	Step    int
	Command command.Command
	Reasons []command.Reason
	Message string
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	ID           string
	Seq          int64
	Seed         uint64
	SequenceHash string
	Failed       bool
	Steps        int
	// Code is empty for passing runs.
	Code oracle.FailureCode
}

// ReadRun retrieves a run with its steps and failures.
// Returns an error wrapping sql.ErrNoRows if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, seed, sequence_hash, trace_hash, commands, failed, shrunk_commands, shrink_attempts
		FROM runs
		WHERE id = ?
	`, id)

	var (
		run          Run
		seed         string
		commandsJSON string
		shrunkJSON   sql.NullString
	)
	err := row.Scan(&run.ID, &run.Seq, &seed, &run.SequenceHash, &run.TraceHash,
		&commandsJSON, &run.Failed, &shrunkJSON, &run.ShrinkAttempts)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("read run %s: seed: %w", id, err)
	}
	if run.Commands, err = trace.UnmarshalCommands([]byte(commandsJSON)); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if shrunkJSON.Valid {
		if run.Shrunk, err = trace.UnmarshalCommands([]byte(shrunkJSON.String)); err != nil {
			return nil, fmt.Errorf("read run %s: shrunk: %w", id, err)
		}
	}

	if run.Steps, err = s.readSteps(ctx, id); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Failure, err = s.readFailure(ctx, id, false); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.ShrunkFailure, err = s.readFailure(ctx, id, true); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	return &run, nil
}

func (s *Store) readSteps(ctx context.Context, runID string) ([]oracle.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, command, outcome, reasons, error, block, gas_used, fee, now
		FROM steps
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []oracle.StepRecord{}
	for rows.Next() {
		var (
			step                 oracle.StepRecord
			cmdJSON, reasonsJSON string
			outcome, fee         string
			block, gas, now      int64
		)
		if err := rows.Scan(&step.Index, &cmdJSON, &outcome, &reasonsJSON, &step.Error, &block, &gas, &fee, &now); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if step.Command, err = trace.UnmarshalCommand([]byte(cmdJSON)); err != nil {
			return nil, fmt.Errorf("step %d: %w", step.Index, err)
		}
		if step.Reasons, err = unmarshalReasons(reasonsJSON); err != nil {
			return nil, fmt.Errorf("step %d: %w", step.Index, err)
		}
		f, ok := new(big.Int).SetString(fee, 10)
		if !ok {
			return nil, fmt.Errorf("step %d: invalid fee %q", step.Index, fee)
		}
		step.Outcome = oracle.Outcome(outcome)
		step.Fee = f
		step.Block = uint64(block)
		step.GasUsed = uint64(gas)
		step.Now = uint64(now)
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// readFailure returns nil, nil when the run has no such failure.
func (s *Store) readFailure(ctx context.Context, runID string, shrunk bool) (*FailureRecord, error) {
	var (
		rec                  FailureRecord
		code                 string
		cmdJSON, reasonsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT code, step, command, reasons, message
		FROM failures
		WHERE run_id = ? AND shrunk = ?
	`, runID, shrunk).Scan(&code, &rec.Step, &cmdJSON, &reasonsJSON, &rec.Message)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query failure: %w", err)
	}
	rec.Code = oracle.FailureCode(code)
	if rec.Command, err = trace.UnmarshalCommand([]byte(cmdJSON)); err != nil {
		return nil, fmt.Errorf("failure command: %w", err)
	}
	if rec.Reasons, err = unmarshalReasons(reasonsJSON); err != nil {
		return nil, fmt.Errorf("failure reasons: %w", err)
	}
	return &rec, nil
}

// ListRuns returns every run in recording order, optionally only the
// failing ones.
func (s *Store) ListRuns(ctx context.Context, failedOnly bool) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.seed, r.sequence_hash, r.failed,
		       (SELECT COUNT(*) FROM steps st WHERE st.run_id = r.id),
		       COALESCE(f.code, '')
		FROM runs r
		LEFT JOIN failures f ON f.run_id = r.id AND f.shrunk = 0
		WHERE (? = 0 OR r.failed = 1)
		ORDER BY r.seq ASC
	`, failedOnly)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var (
			sum        RunSummary
			seed, code string
		)
		if err := rows.Scan(&sum.ID, &sum.Seq, &seed, &sum.SequenceHash, &sum.Failed, &sum.Steps, &code); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if sum.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("run %s: seed: %w", sum.ID, err)
		}
		sum.Code = oracle.FailureCode(code)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Sequence returns the commands to replay for a run: the shrunk
// reproduction when preferShrunk is set and one exists, else the original.
func (s *Store) Sequence(ctx context.Context, id string, preferShrunk bool) ([]command.Command, error) {
	var commandsJSON string
	var shrunkJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT commands, shrunk_commands FROM runs WHERE id = ?`, id).
		Scan(&commandsJSON, &shrunkJSON)
	if err != nil {
		return nil, fmt.Errorf("read sequence %s: %w", id, err)
	}
	data := commandsJSON
	if preferShrunk && shrunkJSON.Valid {
		data = shrunkJSON.String
	}
	return trace.UnmarshalCommands([]byte(data))
}

// RunsWithSequence returns the IDs of runs whose sequence hash is hash, in
// recording order.
func (s *Store) RunsWithSequence(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE sequence_hash = ? ORDER BY seq ASC`, hash)
	if err != nil {
		return nil, fmt.Errorf("query runs by sequence: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func unmarshalReasons(data string) ([]command.Reason, error) {
	var raw []string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("decode reasons: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]command.Reason, len(raw))
	for i, r := range raw {
		out[i] = command.Reason(r)
	}
	return out, nil
}
