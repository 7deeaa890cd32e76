package ethledger

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/saleoracle/internal/ledger"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"VM Exception while processing transaction: revert", ledger.ErrReverted},
		{"execution reverted: not owner", ledger.ErrReverted},
		{"VM Exception while processing transaction: invalid opcode", ledger.ErrInvalidOpcode},
		{"could not unlock signer account", ledger.ErrSignerLocked},
		{"sender account not recognized", ledger.ErrSignerLocked},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			cause := errors.New(tt.msg)
			err := classify("buyTokens", cause)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, cause)
			assert.Contains(t, err.Error(), "buyTokens: ")
		})
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	cause := errors.New("connection refused")
	err := classify("pause", cause)
	assert.ErrorIs(t, err, cause)
	for _, sentinel := range []error{ledger.ErrReverted, ledger.ErrInvalidOpcode, ledger.ErrSignerLocked} {
		assert.NotErrorIs(t, err, sentinel)
	}
	assert.NoError(t, classify("pause", nil))
}

func TestSession_UnknownSenderIsSignerLocked(t *testing.T) {
	s := &Session{client: &Client{}}

	_, err := s.BuyTokens(context.Background(), ledger.TxOpts{From: common.Address{}})
	require.ErrorIs(t, err, ledger.ErrSignerLocked)
	assert.Contains(t, err.Error(), "buyTokens")
}

func TestSession_ClosedRejectsCalls(t *testing.T) {
	s := &Session{client: &Client{}, closed: true}

	_, err := s.Pause(context.Background(), ledger.TxOpts{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.LatestBlock(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.IncreaseTime(context.Background(), 1), ErrClosed)
	assert.NoError(t, s.Close(), "closing twice is a no-op")
}

func TestDial_GivesUp(t *testing.T) {
	cfg := validConfig(t)
	cfg.RPCURL = "http://127.0.0.1:1"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dial(ctx, cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial http://127.0.0.1:1")
}

func TestDial_InvalidConfig(t *testing.T) {
	_, err := Dial(context.Background(), Config{}, nil)
	require.ErrorContains(t, err, "rpc url is required")
}
