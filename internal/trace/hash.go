package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/oracle"
)

// Hash domains keep a sequence hash from ever colliding with a trace hash
// of the same bytes.
const (
	DomainCommands = "saleoracle/commands/v1"
	DomainTrace    = "saleoracle/trace/v1"
)

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SequenceHash identifies a command sequence by content.
func SequenceHash(cmds []command.Command) (string, error) {
	data, err := MarshalCommands(cmds)
	if err != nil {
		return "", fmt.Errorf("encode sequence: %w", err)
	}
	return hashWithDomain(DomainCommands, data), nil
}

// TraceHash identifies the outcome of a run. Two ledgers that settle every
// step the same way produce the same hash.
func TraceHash(steps []oracle.StepRecord) (string, error) {
	data, err := Marshal(Steps(steps))
	if err != nil {
		return "", fmt.Errorf("encode trace: %w", err)
	}
	return hashWithDomain(DomainTrace, data), nil
}
