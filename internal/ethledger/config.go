package ethledger

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Config locates the node and the deployed sale.
type Config struct {
	RPCURL    string
	Crowdsale common.Address
	// PrivateKeys sign for accounts 0..n-1. Account 0 must own the sale.
	PrivateKeys []*ecdsa.PrivateKey
	// GasLimit is attached to every send.
	GasLimit uint64
	// GasPrice is the default price. Nil uses the node's suggestion.
	GasPrice *big.Int
	// DialTimeout bounds how long Dial keeps retrying.
	DialTimeout time.Duration
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	u, err := url.Parse(c.RPCURL)
	if err != nil {
		return fmt.Errorf("rpc url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("rpc url: unsupported scheme %q", u.Scheme)
	}
	if c.Crowdsale == (common.Address{}) {
		return fmt.Errorf("crowdsale address is required")
	}
	if len(c.PrivateKeys) < 2 {
		return fmt.Errorf("need at least 2 private keys, got %d", len(c.PrivateKeys))
	}
	if c.GasLimit <= 21000 {
		return fmt.Errorf("gas limit %d is too low", c.GasLimit)
	}
	if c.GasPrice != nil && c.GasPrice.Sign() < 0 {
		return fmt.Errorf("gas price must not be negative")
	}
	return nil
}

// ParseKeys decodes hex private keys, with or without a 0x prefix.
func ParseKeys(hexKeys []string) ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, 0, len(hexKeys))
	seen := make(map[common.Address]bool, len(hexKeys))
	for i, h := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(h, "0x"))
		if err != nil {
			return nil, fmt.Errorf("private key %d: %w", i, err)
		}
		addr := crypto.PubkeyToAddress(key.PublicKey)
		if seen[addr] {
			return nil, fmt.Errorf("private key %d: duplicate account %s", i, addr.Hex())
		}
		seen[addr] = true
		keys = append(keys, key)
	}
	return keys, nil
}
