package harness

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/ledger"
	"github.com/roach88/saleoracle/internal/oracle"
	"github.com/roach88/saleoracle/internal/simledger"
)

// Scenario is a scripted run against a fresh simulated ledger.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Sale overrides the simulated ledger's default deployment.
	Sale *SaleConfig `yaml:"sale,omitempty"`

	// Faults injects defects into the simulated sale, to demonstrate that
	// the oracle catches them.
	Faults []simledger.Fault `yaml:"faults,omitempty"`

	// Setup steps must all be accepted. They are part of the trace.
	Setup []Step `yaml:"setup,omitempty"`

	Flow       []Step      `yaml:"flow"`
	Assertions []Assertion `yaml:"assertions"`
}

// SaleConfig mirrors simledger.Config. Unset fields keep their defaults.
type SaleConfig struct {
	Accounts       int     `yaml:"accounts,omitempty"`
	InitialBalance *Amount `yaml:"initial_balance,omitempty"`
	GasPrice       *Amount `yaml:"gas_price,omitempty"`
	GenesisTime    *uint64 `yaml:"genesis_time,omitempty"`
	// StartOffset is seconds from genesis to the window start; 0 opens the
	// window immediately.
	StartOffset              *uint64 `yaml:"start_offset,omitempty"`
	Duration                 *uint64 `yaml:"duration,omitempty"`
	Rate                     *Amount `yaml:"rate,omitempty"`
	Cap                      *Amount `yaml:"cap,omitempty"`
	MinInvest                *Amount `yaml:"min_invest,omitempty"`
	MaxCumulativeInvest      *Amount `yaml:"max_cumulative_invest,omitempty"`
	MaxGasPrice              *Amount `yaml:"max_gas_price,omitempty"`
	MinBuyingRequestInterval *uint64 `yaml:"min_buying_request_interval,omitempty"`
}

// Step is one command of a scenario. Accounts are "owner", "wallet",
// "zero" or "acctN".
type Step struct {
	Kind     command.Kind `yaml:"kind"`
	From     string       `yaml:"from,omitempty"`
	Target   string       `yaml:"target,omitempty"`
	Value    *Amount      `yaml:"value,omitempty"`
	Tokens   *Amount      `yaml:"tokens,omitempty"`
	GasPrice *Amount      `yaml:"gas_price,omitempty"`
	Pause    bool         `yaml:"pause,omitempty"`
	Seconds  uint64       `yaml:"seconds,omitempty"`
	Indexes  []uint64     `yaml:"indexes,omitempty"`
	Finalize bool         `yaml:"finalize,omitempty"`

	// Expect is the outcome the step must settle with. Empty skips the
	// check. For a fund-to-cap macro it applies to every expanded step.
	Expect oracle.Outcome `yaml:"expect,omitempty"`

	// Reasons, when set, must equal the model's rejection reasons.
	Reasons []command.Reason `yaml:"reasons,omitempty"`
}

// Amount is a wei amount written as "5", "22 gwei" or "100 ether".
type Amount struct {
	big.Int
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", node.Line)
	}
	v, err := ledger.ParseAmount(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	a.Set(v)
	return nil
}

// Big returns a copy of the amount, or nil for a nil Amount.
func (a *Amount) Big() *big.Int {
	if a == nil {
		return nil
	}
	return new(big.Int).Set(&a.Int)
}

// Assertion type constants.
const (
	AssertState        = "state"
	AssertEthBalance   = "eth_balance"
	AssertOutcomeCount = "outcome_count"
)

// Assertion checks the final state or the trace.
type Assertion struct {
	// Type is one of state, eth_balance or outcome_count.
	Type string `yaml:"type"`

	// Field names a state field (state only); see StateFields.
	Field string `yaml:"field,omitempty"`

	// Account selects the account for per-account fields and eth_balance.
	Account string `yaml:"account,omitempty"`

	// Equals is the expected value in its string form (state, eth_balance).
	Equals string `yaml:"equals,omitempty"`

	// Outcome and Count are used by outcome_count.
	Outcome oracle.Outcome `yaml:"outcome,omitempty"`
	Count   *int           `yaml:"count,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// errors, so a typo fails loudly instead of being ignored.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

var outcomes = []oracle.Outcome{oracle.OutcomeAccepted, oracle.OutcomeRejected, oracle.OutcomeWaited}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	if _, err := command.Lookup(step.Kind); err != nil {
		return err
	}
	if step.Expect != "" && !slices.Contains(outcomes, step.Expect) {
		return fmt.Errorf("unknown expect %q", step.Expect)
	}
	sends := step.Kind != command.KindWaitTime && step.Kind != command.KindFundToCap
	if sends && step.From == "" {
		return fmt.Errorf("from is required for %s", step.Kind)
	}
	switch step.Kind {
	case command.KindSetWallet, command.KindSetToken, command.KindValidatePurchase, command.KindRejectPurchase:
		if step.Target == "" {
			return fmt.Errorf("target is required for %s", step.Kind)
		}
	case command.KindBuyTokens:
		if step.Value == nil {
			return fmt.Errorf("value is required for %s", step.Kind)
		}
	case command.KindBurnTokens:
		if step.Tokens == nil {
			return fmt.Errorf("tokens is required for %s", step.Kind)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertState:
		field, ok := stateFields[a.Field]
		if !ok {
			return fmt.Errorf("unknown state field %q", a.Field)
		}
		if field.perAccount && a.Account == "" {
			return fmt.Errorf("account is required for %s", a.Field)
		}
		if a.Equals == "" {
			return fmt.Errorf("equals is required for state")
		}
	case AssertEthBalance:
		if a.Account == "" || a.Equals == "" {
			return fmt.Errorf("account and equals are required for eth_balance")
		}
	case AssertOutcomeCount:
		if !slices.Contains(append(outcomes, oracle.OutcomeFailed), a.Outcome) {
			return fmt.Errorf("unknown outcome %q", a.Outcome)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("count must be a non-negative number for outcome_count")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// ledgerConfig applies the scenario's overrides to the default deployment.
func (s *Scenario) ledgerConfig() simledger.Config {
	cfg := simledger.DefaultConfig()
	cfg.Faults = s.Faults
	sc := s.Sale
	if sc == nil {
		return cfg
	}
	if sc.Accounts != 0 {
		cfg.Accounts = sc.Accounts
	}
	setAmount := func(dst **big.Int, a *Amount) {
		if a != nil {
			*dst = a.Big()
		}
	}
	setUint := func(dst *uint64, v *uint64) {
		if v != nil {
			*dst = *v
		}
	}
	setAmount(&cfg.InitialBalance, sc.InitialBalance)
	setAmount(&cfg.GasPrice, sc.GasPrice)
	setAmount(&cfg.Rate, sc.Rate)
	setAmount(&cfg.Cap, sc.Cap)
	setAmount(&cfg.MinInvest, sc.MinInvest)
	setAmount(&cfg.MaxCumulativeInvest, sc.MaxCumulativeInvest)
	setAmount(&cfg.MaxGasPrice, sc.MaxGasPrice)
	setUint(&cfg.GenesisTime, sc.GenesisTime)
	setUint(&cfg.StartOffset, sc.StartOffset)
	setUint(&cfg.Duration, sc.Duration)
	setUint(&cfg.MinBuyingRequestInterval, sc.MinBuyingRequestInterval)
	return cfg
}
