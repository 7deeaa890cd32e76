package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/model"
	"github.com/roach88/saleoracle/internal/oracle"
)

// Command returns the canonical form of c. Fields a kind does not use are
// omitted, and amounts are decimal strings.
func Command(c command.Command) Object {
	obj := Object{"kind": String(c.Kind)}
	if c.Sends() {
		obj["from"] = String(c.From.String())
	}
	if c.Target != model.External {
		obj["target"] = String(c.Target.String())
	}
	if c.Value != nil {
		obj["value"] = String(c.Value.String())
	}
	if c.GasPrice != nil {
		obj["gas_price"] = String(c.GasPrice.String())
	}
	if c.Tokens != nil {
		obj["tokens"] = String(c.Tokens.String())
	}
	switch c.Kind {
	case command.KindPauseCrowdsale, command.KindPauseToken:
		obj["pause"] = Bool(c.Pause)
	case command.KindWaitTime:
		obj["seconds"] = uintValue(c.Seconds)
	case command.KindRefundAll:
		idx := make(Array, len(c.Indexes))
		for i, v := range c.Indexes {
			idx[i] = uintValue(v)
		}
		obj["indexes"] = idx
	case command.KindFundToCap:
		obj["finalize"] = Bool(c.Finalize)
	}
	if c.Origin != "" {
		obj["origin"] = String(c.Origin)
	}
	return obj
}

// uintValue keeps values above the int64 range exact by writing them as
// strings.
func uintValue(v uint64) Value {
	if v > math.MaxInt64 {
		return String(fmt.Sprint(v))
	}
	return Int(v)
}

// Commands returns the canonical form of a sequence.
func Commands(cmds []command.Command) Array {
	arr := make(Array, len(cmds))
	for i, c := range cmds {
		arr[i] = Command(c)
	}
	return arr
}

// MarshalCommands encodes a sequence as canonical JSON.
func MarshalCommands(cmds []command.Command) ([]byte, error) {
	return Marshal(Commands(cmds))
}

// Step returns the canonical form of a step record. Chain-specific details
// (block number, gas, fee) are left out so records from different ledgers
// compare equal when the outcomes agree.
func Step(rec oracle.StepRecord) Object {
	obj := Object{
		"index":   Int(rec.Index),
		"command": Command(rec.Command),
		"outcome": String(rec.Outcome),
	}
	if len(rec.Reasons) > 0 {
		reasons := make(Array, len(rec.Reasons))
		for i, r := range rec.Reasons {
			reasons[i] = String(r)
		}
		obj["reasons"] = reasons
	}
	return obj
}

// Steps returns the canonical form of a list of step records.
func Steps(recs []oracle.StepRecord) Array {
	arr := make(Array, len(recs))
	for i, rec := range recs {
		arr[i] = Step(rec)
	}
	return arr
}

// UnmarshalCommands decodes a sequence written by MarshalCommands. Any
// JSON encoding of the same objects is accepted; unknown keys are errors.
func UnmarshalCommands(data []byte) ([]command.Command, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode commands: %w", err)
	}
	cmds := make([]command.Command, len(raw))
	for i, obj := range raw {
		c, err := decodeCommand(obj)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		cmds[i] = c
	}
	return cmds, nil
}

// UnmarshalCommand decodes a single command object.
func UnmarshalCommand(data []byte) (command.Command, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return command.Command{}, fmt.Errorf("decode command: %w", err)
	}
	return decodeCommand(raw)
}

func decodeCommand(obj map[string]any) (command.Command, error) {
	c := command.Command{From: model.External, Target: model.External}
	for key, v := range obj {
		var err error
		switch key {
		case "kind":
			var s string
			s, err = asString(v)
			c.Kind = command.Kind(s)
		case "from":
			c.From, err = asAccount(v)
		case "target":
			c.Target, err = asAccount(v)
		case "value":
			c.Value, err = asBig(v)
		case "gas_price":
			c.GasPrice, err = asBig(v)
		case "tokens":
			c.Tokens, err = asBig(v)
		case "pause":
			c.Pause, err = asBool(v)
		case "seconds":
			c.Seconds, err = asUint(v)
		case "finalize":
			c.Finalize, err = asBool(v)
		case "origin":
			var s string
			s, err = asString(v)
			c.Origin = command.Kind(s)
		case "indexes":
			list, ok := v.([]any)
			if !ok {
				return c, fmt.Errorf("indexes: expected array, got %T", v)
			}
			c.Indexes = make([]uint64, len(list))
			for i, item := range list {
				if c.Indexes[i], err = asUint(item); err != nil {
					break
				}
			}
		default:
			return c, fmt.Errorf("unknown field %q", key)
		}
		if err != nil {
			return c, fmt.Errorf("%s: %w", key, err)
		}
	}
	if _, err := command.Lookup(c.Kind); err != nil {
		return c, err
	}
	return c, nil
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", v)
	}
	return b, nil
}

func asAccount(v any) (model.Account, error) {
	s, err := asString(v)
	if err != nil {
		return 0, err
	}
	return model.ParseAccount(s)
}

// asBig accepts a decimal string or a JSON integer.
func asBig(v any) (*big.Int, error) {
	var text string
	switch val := v.(type) {
	case string:
		text = val
	case json.Number:
		text = val.String()
	default:
		return nil, fmt.Errorf("expected decimal amount, got %T", v)
	}
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", text)
	}
	return n, nil
}

func asUint(v any) (uint64, error) {
	n, err := asBig(v)
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("%s is out of range", n)
	}
	return n.Uint64(), nil
}
