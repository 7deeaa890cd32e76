package ethledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/saleoracle/internal/ledger"
)

// ErrClosed is returned by every call on a closed session.
var ErrClosed = errors.New("ethledger: session closed")

// Node error texts differ between clients; these fragments cover ganache,
// hardhat and geth's dev mode.
var (
	revertFragments = []string{"revert", "execution reverted"}
	opcodeFragments = []string{"invalid opcode"}
	signerFragments = []string{"could not unlock signer account", "unknown account", "sender account not recognized"}
)

// classify wraps err with the ledger sentinel its text matches so the
// oracle can recognize rejections with errors.Is.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, opcodeFragments):
		return fmt.Errorf("%s: %w: %w", method, ledger.ErrInvalidOpcode, err)
	case containsAny(msg, revertFragments):
		return fmt.Errorf("%s: %w: %w", method, ledger.ErrReverted, err)
	case containsAny(msg, signerFragments):
		return fmt.Errorf("%s: %w: %w", method, ledger.ErrSignerLocked, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
