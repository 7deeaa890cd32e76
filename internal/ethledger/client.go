package ethledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/roach88/saleoracle/internal/ledger"
)

const closeTimeout = 30 * time.Second

// Client is a connection to the node. It opens sessions for the oracle.
type Client struct {
	rpc      *rpc.Client
	eth      *ethclient.Client
	chainID  *big.Int
	cfg      Config
	keys     map[common.Address]*ecdsa.PrivateKey
	accounts *ledger.Accounts
	logger   *slog.Logger
}

var _ ledger.Factory = (*Client)(nil)

// Dial connects to cfg.RPCURL, retrying with exponential backoff until the
// node answers eth_chainId or cfg.DialTimeout passes. A nil logger
// discards output.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ethledger: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var (
		rc      *rpc.Client
		chainID hexutil.Big
	)
	connect := func() error {
		c, err := rpc.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			return err
		}
		// An HTTP dial never touches the node, so ask it something.
		if err := c.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
			c.Close()
			return err
		}
		rc = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.DialTimeout
	notify := func(err error, wait time.Duration) {
		logger.Warn("ledger node not ready", "url", cfg.RPCURL, "error", err, "retry_in", wait)
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("ethledger: dial %s: %w", cfg.RPCURL, err)
	}

	keys := make(map[common.Address]*ecdsa.PrivateKey, len(cfg.PrivateKeys))
	addrs := make([]common.Address, 0, len(cfg.PrivateKeys))
	for _, key := range cfg.PrivateKeys {
		addr := crypto.PubkeyToAddress(key.PublicKey)
		keys[addr] = key
		addrs = append(addrs, addr)
	}

	logger.Info("connected to ledger node", "url", cfg.RPCURL, "chain_id", chainID.ToInt(), "accounts", len(addrs))
	return &Client{
		rpc:      rc,
		eth:      ethclient.NewClient(rc),
		chainID:  chainID.ToInt(),
		cfg:      cfg,
		keys:     keys,
		accounts: ledger.NewAccounts(addrs),
		logger:   logger,
	}, nil
}

// Close drops the connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// Open snapshots the chain and binds a session to the sale. Closing the
// session reverts to the snapshot.
func (c *Client) Open(ctx context.Context) (ledger.Session, error) {
	var snapshot string
	if err := c.rpc.CallContext(ctx, &snapshot, "evm_snapshot"); err != nil {
		return nil, fmt.Errorf("evm_snapshot: %w", err)
	}
	s, err := c.newSession(ctx, snapshot)
	if err != nil {
		if rerr := c.revert(ctx, snapshot); rerr != nil {
			c.logger.Warn("revert after failed open", "snapshot", snapshot, "error", rerr)
		}
		return nil, err
	}
	c.logger.Debug("session opened", "snapshot", snapshot)
	return s, nil
}

func (c *Client) revert(ctx context.Context, snapshot string) error {
	var ok bool
	if err := c.rpc.CallContext(ctx, &ok, "evm_revert", snapshot); err != nil {
		return fmt.Errorf("evm_revert: %w", err)
	}
	if !ok {
		return fmt.Errorf("evm_revert: snapshot %s not found", snapshot)
	}
	return nil
}

func (c *Client) newSession(ctx context.Context, snapshot string) (*Session, error) {
	sale, err := bindContract(crowdsaleMetaData, c.cfg.Crowdsale, c.eth)
	if err != nil {
		return nil, fmt.Errorf("bind crowdsale: %w", err)
	}
	s := &Session{client: c, snapshot: snapshot, sale: sale}

	// The token and vault are pinned to what the sale points at now, so
	// token reads keep following the original token after setToken.
	tokenAddr, err := s.callAddress(ctx, sale, "token")
	if err != nil {
		return nil, err
	}
	vaultAddr, err := s.callAddress(ctx, sale, "vault")
	if err != nil {
		return nil, err
	}
	if s.token, err = bindContract(tokenMetaData, tokenAddr, c.eth); err != nil {
		return nil, fmt.Errorf("bind token: %w", err)
	}
	if s.vault, err = bindContract(vaultMetaData, vaultAddr, c.eth); err != nil {
		return nil, fmt.Errorf("bind vault: %w", err)
	}

	s.gasPrice = c.cfg.GasPrice
	if s.gasPrice == nil {
		if s.gasPrice, err = c.eth.SuggestGasPrice(ctx); err != nil {
			return nil, fmt.Errorf("suggest gas price: %w", err)
		}
	}
	return s, nil
}
