package sequence

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"github.com/roach88/saleoracle/internal/command"
)

// DefaultMaxAttempts bounds how many candidate sequences Shrink tries.
const DefaultMaxAttempts = 400

// Predicate reports whether cmds still reproduce the failure being shrunk.
type Predicate func(ctx context.Context, cmds []command.Command) (bool, error)

// Shrinker minimizes failing sequences.
type Shrinker struct {
	MaxAttempts int
	Logger      *slog.Logger
}

// Result is a shrunk sequence.
type Result struct {
	Commands []command.Command
	Attempts int
	// Exhausted is set when the attempt budget ran out before a fixpoint.
	Exhausted bool
}

// Shrink walks gopter's slice shrink stream for cmds: chunks of commands
// are dropped first, then single commands are simplified. The first
// candidate for which still holds becomes the new sequence and the stream
// restarts from it. cmds itself is assumed to satisfy still.
func (s *Shrinker) Shrink(ctx context.Context, cmds []command.Command, still Predicate) (Result, error) {
	budget := s.MaxAttempts
	if budget <= 0 {
		budget = DefaultMaxAttempts
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shrinker := gen.SliceShrinker(commandShrinker)
	res := Result{Commands: clone(cmds)}
	stream := shrinker(res.Commands)
	for {
		v, ok := stream()
		if !ok {
			break
		}
		if res.Attempts >= budget {
			res.Exhausted = true
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts++

		cand := v.([]command.Command)
		holds, err := still(ctx, cand)
		if err != nil {
			return res, err
		}
		if holds {
			res.Commands = clone(cand)
			stream = shrinker(res.Commands)
		}
	}

	logger.Debug("shrink finished",
		"from", len(cmds),
		"to", len(res.Commands),
		"attempts", res.Attempts,
		"exhausted", res.Exhausted,
	)
	return res, nil
}

// commandShrinker yields simpler variants of one command, one field at a
// time: the gas price override, amounts, the wait, refundAll's indexes and
// the macro's finalize flag.
func commandShrinker(v interface{}) gopter.Shrink {
	c := v.(command.Command)
	var shrinks []gopter.Shrink
	if c.GasPrice != nil {
		alt := c.Clone()
		alt.GasPrice = nil
		shrinks = append(shrinks, once(alt))
	}
	if c.Value != nil {
		shrinks = append(shrinks, amountShrinker(c.Value).Map(func(v *big.Int) command.Command {
			alt := c.Clone()
			alt.Value = v
			return alt
		}))
	}
	if c.Tokens != nil {
		shrinks = append(shrinks, amountShrinker(c.Tokens).Map(func(v *big.Int) command.Command {
			alt := c.Clone()
			alt.Tokens = v
			return alt
		}))
	}
	if c.Seconds > 0 {
		shrinks = append(shrinks, gen.UInt64Shrinker(c.Seconds).
			Filter(func(v interface{}) bool { return v.(uint64) > 0 }).
			Map(func(v uint64) command.Command {
				alt := c.Clone()
				alt.Seconds = v
				return alt
			}))
	}
	if len(c.Indexes) > 0 {
		shrinks = append(shrinks, gen.SliceShrinker(gopter.NoShrinker)(c.Indexes).Map(func(v []uint64) command.Command {
			alt := c.Clone()
			alt.Indexes = v
			return alt
		}))
	}
	if c.Kind == command.KindFundToCap && c.Finalize {
		shrinks = append(shrinks, once(command.FundToCap(false)))
	}
	return gopter.ConcatShrinks(shrinks...)
}

// amountShrink steps a positive amount toward one the way gopter's
// UInt64Shrinker steps toward zero: v-v/2, v-v/4, ..., v-1.
type amountShrink struct {
	original *big.Int
	half     *big.Int
}

func (s *amountShrink) Next() (interface{}, bool) {
	if s.half.Sign() == 0 {
		return nil, false
	}
	v := new(big.Int).Sub(s.original, s.half)
	s.half = new(big.Int).Rsh(s.half, 1)
	return v, true
}

func amountShrinker(v *big.Int) gopter.Shrink {
	if v.Sign() <= 0 {
		return gopter.NoShrink
	}
	s := &amountShrink{original: new(big.Int).Set(v), half: new(big.Int).Set(v)}
	return gopter.Shrink(s.Next).Filter(func(v interface{}) bool { return v.(*big.Int).Sign() > 0 })
}

func once(c command.Command) gopter.Shrink {
	done := false
	return func() (interface{}, bool) {
		if done {
			return nil, false
		}
		done = true
		return c, true
	}
}

func clone(cmds []command.Command) []command.Command {
	out := make([]command.Command, len(cmds))
	for i, c := range cmds {
		out[i] = c.Clone()
	}
	return out
}
