package oracle

import (
	"errors"

	"github.com/roach88/saleoracle/internal/ledger"
)

// IsExpectedRejection reports whether a ledger error is the rejection the
// model predicted. A revert or an invalid opcode counts whenever the model
// rejects the command; a locked signer only when a party is the zero
// identity, since that is the only account the node cannot sign for.
func IsExpectedRejection(err error, shouldReject, zeroParty bool) bool {
	if err == nil || !shouldReject {
		return false
	}
	if errors.Is(err, ledger.ErrReverted) || errors.Is(err, ledger.ErrInvalidOpcode) {
		return true
	}
	return zeroParty && errors.Is(err, ledger.ErrSignerLocked)
}
