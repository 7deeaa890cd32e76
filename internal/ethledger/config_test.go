package ethledger

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyA  = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	addrA = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

func testKeys(t *testing.T, n int) []*ecdsa.PrivateKey {
	t.Helper()
	keys := make([]*ecdsa.PrivateKey, n)
	for i := range keys {
		k, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys[i] = k
	}
	return keys
}

func validConfig(t *testing.T) Config {
	return Config{
		RPCURL:      "http://127.0.0.1:8545",
		Crowdsale:   common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		PrivateKeys: testKeys(t, 2),
		GasLimit:    1_000_000,
		DialTimeout: time.Second,
	}
}

func TestParseKeys(t *testing.T) {
	keys, err := ParseKeys([]string{keyA, keyA[2:]})
	require.Error(t, err, "the same key twice is a duplicate account")
	assert.Nil(t, keys)

	keys, err = ParseKeys([]string{keyA})
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, common.HexToAddress(addrA), crypto.PubkeyToAddress(keys[0].PublicKey))

	_, err = ParseKeys([]string{"0xnothex"})
	require.ErrorContains(t, err, "private key 0")
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing url", func(c *Config) { c.RPCURL = "" }, "rpc url is required"},
		{"bad scheme", func(c *Config) { c.RPCURL = "ftp://node" }, `unsupported scheme "ftp"`},
		{"missing crowdsale", func(c *Config) { c.Crowdsale = common.Address{} }, "crowdsale address is required"},
		{"one key", func(c *Config) { c.PrivateKeys = c.PrivateKeys[:1] }, "need at least 2 private keys"},
		{"gas limit", func(c *Config) { c.GasLimit = 21000 }, "gas limit 21000 is too low"},
		{"negative price", func(c *Config) { c.GasPrice = big.NewInt(-1) }, "gas price must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig(t)
			tt.mutate(&c)
			require.ErrorContains(t, c.Validate(), tt.want)
		})
	}
}
