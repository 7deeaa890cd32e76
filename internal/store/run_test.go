package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/oracle"
	"github.com/roach88/saleoracle/internal/testutil"
	"github.com/roach88/saleoracle/internal/trace"
)

var _ oracle.Recorder = (*Store)(nil)

func TestRecordRun_AssignsUUIDv7(t *testing.T) {
	s := createTestStore(t)

	id, err := s.RecordRun(context.Background(), passingRun(1))
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestRecordRun_InjectedIDs(t *testing.T) {
	s, err := Open(":memory:", WithIDGenerator(testutil.NewSequentialIDs("t")))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	first, err := s.RecordRun(ctx, passingRun(1))
	require.NoError(t, err)
	second, err := s.RecordRun(ctx, passingRun(2))
	require.NoError(t, err)

	assert.Equal(t, "t-0001", first)
	assert.Equal(t, "t-0002", second)
}

func TestRecordRun_RequiresReport(t *testing.T) {
	s := createTestStore(t)
	_, err := s.RecordRun(context.Background(), oracle.RunResult{Seed: 1})
	require.Error(t, err)
}

func TestReadRun_Passing(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	res := passingRun(18446744073709551615)

	id, err := s.RecordRun(ctx, res)
	require.NoError(t, err)

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, run.ID)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, uint64(18446744073709551615), run.Seed)
	assert.False(t, run.Failed)
	assert.Nil(t, run.Shrunk)
	assert.Nil(t, run.Failure)
	assert.Nil(t, run.ShrunkFailure)

	wantHash, err := trace.SequenceHash(res.Report.Commands)
	require.NoError(t, err)
	assert.Equal(t, wantHash, run.SequenceHash)

	require.Len(t, run.Commands, 2)
	assert.Equal(t, "buyTokens(from=acct1, value=5)", run.Commands[1].String())

	require.Len(t, run.Steps, 2)
	assert.Equal(t, oracle.OutcomeWaited, run.Steps[0].Outcome)
	assert.Equal(t, "0", run.Steps[0].Fee.String())
	assert.Equal(t, oracle.OutcomeAccepted, run.Steps[1].Outcome)
	assert.Equal(t, "91200", run.Steps[1].Fee.String())
	assert.Equal(t, uint64(91200), run.Steps[1].GasUsed)
	assert.Equal(t, uint64(2), run.Steps[1].Block)
	assert.Equal(t, uint64(60), run.Steps[1].Now)

	traceHash, err := trace.TraceHash(run.Steps)
	require.NoError(t, err)
	assert.Equal(t, run.TraceHash, traceHash)
}

func TestReadRun_FailingWithShrink(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id, err := s.RecordRun(ctx, failingRun(9))
	require.NoError(t, err)

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)

	assert.True(t, run.Failed)
	assert.Equal(t, 7, run.ShrinkAttempts)
	require.Len(t, run.Shrunk, 2)

	require.NotNil(t, run.Failure)
	assert.Equal(t, oracle.CodeUnexpectedSuccess, run.Failure.Code)
	assert.Equal(t, 1, run.Failure.Step)
	assert.Equal(t, "buyTokens(from=acct2, value=10)", run.Failure.Command.String())
	assert.Equal(t, []command.Reason{command.ReasonPaused}, run.Failure.Reasons)
	assert.Contains(t, run.Failure.Message, "ledger accepted")

	require.NotNil(t, run.ShrunkFailure)
	assert.Equal(t, oracle.CodeUnexpectedSuccess, run.ShrunkFailure.Code)

	require.Len(t, run.Steps, 2)
	assert.Equal(t, oracle.OutcomeFailed, run.Steps[1].Outcome)
	assert.Equal(t, []command.Reason{command.ReasonPaused}, run.Steps[1].Reasons)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first, err := s.RecordRun(ctx, passingRun(1))
	require.NoError(t, err)
	second, err := s.RecordRun(ctx, failingRun(2))
	require.NoError(t, err)

	all, err := s.ListRuns(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].ID)
	assert.Equal(t, int64(1), all[0].Seq)
	assert.Equal(t, 2, all[0].Steps)
	assert.Equal(t, oracle.FailureCode(""), all[0].Code)
	assert.Equal(t, second, all[1].ID)
	assert.Equal(t, oracle.CodeUnexpectedSuccess, all[1].Code)

	failed, err := s.ListRuns(ctx, true)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, second, failed[0].ID)
	assert.Equal(t, uint64(2), failed[0].Seed)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListRuns(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs)
}

func TestSequence_PrefersShrunk(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	failID, err := s.RecordRun(ctx, failingRun(3))
	require.NoError(t, err)
	passID, err := s.RecordRun(ctx, passingRun(4))
	require.NoError(t, err)

	original, err := s.Sequence(ctx, failID, false)
	require.NoError(t, err)
	assert.Len(t, original, 3)

	shrunk, err := s.Sequence(ctx, failID, true)
	require.NoError(t, err)
	assert.Len(t, shrunk, 2)

	// No shrunk sequence: the original comes back.
	cmds, err := s.Sequence(ctx, passID, true)
	require.NoError(t, err)
	assert.Len(t, cmds, 2)

	_, err = s.Sequence(ctx, "missing", false)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRunsWithSequence(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	a, err := s.RecordRun(ctx, passingRun(1))
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, failingRun(2))
	require.NoError(t, err)
	b, err := s.RecordRun(ctx, passingRun(3))
	require.NoError(t, err)

	hash, err := trace.SequenceHash(passingRun(0).Report.Commands)
	require.NoError(t, err)

	ids, err := s.RunsWithSequence(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, ids)
}
