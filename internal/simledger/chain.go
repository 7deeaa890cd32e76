package simledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/roach88/saleoracle/internal/ledger"
)

// ErrClosed is returned by every call on a closed session.
var ErrClosed = errors.New("simledger: session closed")

// Gas charged per call. Reverted calls pay gasReverted whatever the method.
const (
	gasReverted     uint64 = 24_000
	gasSetWallet    uint64 = 28_900
	gasSetToken     uint64 = 28_700
	gasClaim        uint64 = 36_400
	gasRefundAll    uint64 = 31_000
	gasRefundEach   uint64 = 11_800
	gasBuy          uint64 = 91_200
	gasValidate     uint64 = 86_500
	gasReject       uint64 = 54_300
	gasPause        uint64 = 27_600
	gasFinalize     uint64 = 118_000
	gasPauseToken   uint64 = 27_900
	gasBurn         uint64 = 35_100
	accountKeyLabel        = "saleoracle/simledger/account/"
)

// msg is the context a contract method runs in.
type msg struct {
	sender   common.Address
	value    *big.Int
	gasPrice *big.Int
	now      uint64
}

// chain holds native balances, time and blocks.
type chain struct {
	now    uint64
	blocks []ledger.Block
	eth    map[common.Address]*big.Int
	nonces map[common.Address]uint64
}

func newChain(genesis uint64) *chain {
	return &chain{
		now:    genesis,
		blocks: []ledger.Block{{Number: 0, Timestamp: genesis}},
		eth:    make(map[common.Address]*big.Int),
		nonces: make(map[common.Address]uint64),
	}
}

func (ch *chain) balance(addr common.Address) *big.Int {
	if b, ok := ch.eth[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (ch *chain) credit(addr common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	b, ok := ch.eth[addr]
	if !ok {
		b = new(big.Int)
		ch.eth[addr] = b
	}
	b.Add(b, amount)
}

// transfer moves amount between addresses. Callers check funds first.
func (ch *chain) transfer(from, to common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	ch.credit(from, new(big.Int).Neg(amount))
	ch.credit(to, amount)
}

func (ch *chain) head() ledger.Block {
	return ch.blocks[len(ch.blocks)-1]
}

func (ch *chain) mine(gasUsed uint64, txs int) ledger.Block {
	b := ledger.Block{
		Number:    ch.head().Number + 1,
		Timestamp: ch.now,
		GasUsed:   gasUsed,
		TxCount:   txs,
	}
	ch.blocks = append(ch.blocks, b)
	return b
}

func (ch *chain) nextTxHash(from common.Address) common.Hash {
	nonce := ch.nonces[from]
	ch.nonces[from] = nonce + 1

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], nonce)
	binary.BigEndian.PutUint64(buf[8:], ch.head().Number+1)
	return crypto.Keccak256Hash(from.Bytes(), buf[:])
}

// fee is gas × price.
func fee(gas uint64, price *big.Int) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gas), price)
}

// deriveAccounts returns n deterministic externally owned addresses.
func deriveAccounts(n int) ([]common.Address, error) {
	addrs := make([]common.Address, n)
	for i := range addrs {
		seed := crypto.Keccak256([]byte(fmt.Sprintf("%s%d", accountKeyLabel, i)))
		key, err := crypto.ToECDSA(seed)
		if err != nil {
			return nil, fmt.Errorf("derive account %d: %w", i, err)
		}
		addrs[i] = crypto.PubkeyToAddress(key.PublicKey)
	}
	return addrs, nil
}
