// Package config loads run settings from a CUE or YAML file. Both formats
// are unified with the embedded schema, which supplies every default and
// rejects unknown keys, so the decoded Config is always complete.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/ethledger"
	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/oracle"
	"github.com/roach88/saleoracle/internal/simledger"
)

//go:embed schema.cue
var schemaSource string

// Config is the decoded run configuration. Amounts are kept as written
// ("50 gwei") and parsed when converted for a component.
type Config struct {
	Ledger            string   `json:"ledger"`
	Seed              uint64   `json:"seed"`
	Commands          int      `json:"commands"`
	Runs              int      `json:"runs"`
	Shrink            bool     `json:"shrink"`
	MaxShrinkAttempts int      `json:"max_shrink_attempts"`
	CheckBalances     bool     `json:"check_balances"`
	FullChecks        bool     `json:"full_checks"`
	GasPrice          string   `json:"gas_price,omitempty"`
	Store             string   `json:"store"`
	Kinds             []string `json:"kinds"`

	Log LogConfig `json:"log"`
	Sim SimConfig `json:"sim"`
	Eth EthConfig `json:"eth"`
}

// LogConfig controls the console level and the optional rotated log file.
type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// SimConfig deploys the in-process sale.
type SimConfig struct {
	Accounts                 int      `json:"accounts"`
	InitialBalance           string   `json:"initial_balance"`
	StartOffset              uint64   `json:"start_offset"`
	Duration                 uint64   `json:"duration"`
	Rate                     string   `json:"rate"`
	Cap                      string   `json:"cap"`
	MinInvest                string   `json:"min_invest"`
	MaxCumulativeInvest      string   `json:"max_cumulative_invest"`
	MaxGasPrice              string   `json:"max_gas_price"`
	MinBuyingRequestInterval uint64   `json:"min_buying_request_interval"`
	Faults                   []string `json:"faults"`
}

// EthConfig points at a development chain with the sale deployed.
type EthConfig struct {
	RPCURL      string   `json:"rpc_url"`
	Crowdsale   string   `json:"crowdsale,omitempty"`
	PrivateKeys []string `json:"private_keys"`
	GasLimit    uint64   `json:"gas_limit"`
	DialTimeout string   `json:"dial_timeout"`
}

// Default returns the schema defaults.
func Default() (*Config, error) {
	return Parse("", nil)
}

// Load reads and decodes the file at path. The extension picks the format.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes data as the format named by filename's extension: .cue,
// .yaml or .yml. An empty filename means no file, only defaults.
func Parse(filename string, data []byte) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	file := ctx.CompileString("{}")
	if len(bytes.TrimSpace(data)) > 0 {
		switch ext := strings.ToLower(filepath.Ext(filename)); ext {
		case ".cue":
			file = ctx.CompileBytes(data, cue.Filename(filename))
		case ".yaml", ".yml":
			f, err := cueyaml.Extract(filename, data)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", filename, err)
			}
			file = ctx.BuildFile(f)
		default:
			return nil, fmt.Errorf("unsupported config format %q", ext)
		}
	}
	if err := file.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: %s", filename, cueerrors.Details(err, nil))
	}

	v := def.Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// LogLevel maps the configured level name to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// GasPriceAmount returns the configured default gas price, or nil.
func (c *Config) GasPriceAmount() (*big.Int, error) {
	if c.GasPrice == "" {
		return nil, nil
	}
	v, err := ledger.ParseAmount(c.GasPrice)
	if err != nil {
		return nil, fmt.Errorf("gas_price: %w", err)
	}
	return v, nil
}

// Campaign converts the run settings.
func (c *Config) Campaign() (oracle.CampaignConfig, error) {
	kinds := make([]command.Kind, 0, len(c.Kinds))
	for _, k := range c.Kinds {
		spec, err := command.Lookup(command.Kind(k))
		if err != nil {
			return oracle.CampaignConfig{}, fmt.Errorf("kinds: %w", err)
		}
		kinds = append(kinds, spec.Kind)
	}
	return oracle.CampaignConfig{
		Seed:              c.Seed,
		Runs:              c.Runs,
		Commands:          c.Commands,
		Shrink:            c.Shrink,
		MaxShrinkAttempts: c.MaxShrinkAttempts,
		CheckBalances:     c.CheckBalances,
		FullChecks:        c.FullChecks,
		Kinds:             kinds,
	}, nil
}

// SimLedger converts the sim section, starting from the simulator's own
// defaults for anything the file cannot set.
func (c *Config) SimLedger() (simledger.Config, error) {
	out := simledger.DefaultConfig()
	out.Accounts = c.Sim.Accounts
	out.StartOffset = c.Sim.StartOffset
	out.Duration = c.Sim.Duration
	out.MinBuyingRequestInterval = c.Sim.MinBuyingRequestInterval

	amounts := []struct {
		key string
		src string
		dst **big.Int
	}{
		{"initial_balance", c.Sim.InitialBalance, &out.InitialBalance},
		{"rate", c.Sim.Rate, &out.Rate},
		{"cap", c.Sim.Cap, &out.Cap},
		{"min_invest", c.Sim.MinInvest, &out.MinInvest},
		{"max_cumulative_invest", c.Sim.MaxCumulativeInvest, &out.MaxCumulativeInvest},
		{"max_gas_price", c.Sim.MaxGasPrice, &out.MaxGasPrice},
	}
	for _, a := range amounts {
		v, err := ledger.ParseAmount(a.src)
		if err != nil {
			return simledger.Config{}, fmt.Errorf("sim.%s: %w", a.key, err)
		}
		*a.dst = v
	}

	price, err := c.GasPriceAmount()
	if err != nil {
		return simledger.Config{}, err
	}
	if price != nil {
		out.GasPrice = price
	}
	for _, f := range c.Sim.Faults {
		out.Faults = append(out.Faults, simledger.Fault(f))
	}
	return out, out.Validate()
}

// EthLedger converts the eth section.
func (c *Config) EthLedger() (ethledger.Config, error) {
	keys, err := ethledger.ParseKeys(c.Eth.PrivateKeys)
	if err != nil {
		return ethledger.Config{}, fmt.Errorf("eth.private_keys: %w", err)
	}
	timeout, err := time.ParseDuration(c.Eth.DialTimeout)
	if err != nil {
		return ethledger.Config{}, fmt.Errorf("eth.dial_timeout: %w", err)
	}
	price, err := c.GasPriceAmount()
	if err != nil {
		return ethledger.Config{}, err
	}
	out := ethledger.Config{
		RPCURL:      c.Eth.RPCURL,
		Crowdsale:   common.HexToAddress(c.Eth.Crowdsale),
		PrivateKeys: keys,
		GasLimit:    c.Eth.GasLimit,
		GasPrice:    price,
		DialTimeout: timeout,
	}
	return out, out.Validate()
}
