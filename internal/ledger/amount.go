package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

var units = map[string]*big.Int{
	"":      big.NewInt(params.Wei),
	"wei":   big.NewInt(params.Wei),
	"gwei":  big.NewInt(params.GWei),
	"ether": big.NewInt(params.Ether),
}

// ParseAmount reads a non-negative integer amount with an optional unit:
// "5", "5 wei", "22 gwei" or "100 ether".
func ParseAmount(s string) (*big.Int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	unit := ""
	if len(fields) == 2 {
		unit = strings.ToLower(fields[1])
	}
	mul, ok := units[unit]
	if !ok {
		return nil, fmt.Errorf("invalid amount %q: unknown unit %q", s, fields[1])
	}
	n, ok := new(big.Int).SetString(fields[0], 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n.Mul(n, mul), nil
}
