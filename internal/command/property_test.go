package command

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pgregory.net/rand"

	"github.com/roach88/saleoracle/internal/model"
)

// runRandom applies n generated commands from seed to the test sale and
// calls check after every accepted one.
func runRandom(seed uint64, n int, check func(prev, next *model.State, c Command) string) string {
	r := rand.New(seed)
	cfg := DefaultGenConfig(5)
	st := newTestState()
	all := Kinds()

	for i := 0; i < n; i++ {
		spec := catalog[all[r.Intn(len(all))]]
		c := spec.Generate(r, st, cfg)
		batch := []Command{c}
		if spec.Macro {
			batch = ExpandFundToCap(st, c.Finalize, cfg.Accounts)
		}
		for _, bc := range batch {
			next, reasons, err := Apply(st, bc)
			if err != nil {
				return fmt.Sprintf("step %d %s: %v", i, bc, err)
			}
			if len(reasons) > 0 {
				continue
			}
			if msg := check(st, next, bc); msg != "" {
				return fmt.Sprintf("step %d %s: %s", i, bc, msg)
			}
			st = next
		}
	}
	return ""
}

func TestProperties_Catalog(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("invariants hold after every accepted command", prop.ForAll(
		func(seed uint64, n int) string {
			return runRandom(seed, n, func(prev, next *model.State, _ Command) string {
				if err := model.CheckInvariants(prev, next); err != nil {
					return err.Error()
				}
				return ""
			})
		},
		gen.UInt64(),
		gen.IntRange(1, 80),
	))

	properties.Property("wei raised never decreases and supply tracks mints and burns", prop.ForAll(
		func(seed uint64, n int) string {
			return runRandom(seed, n, func(prev, next *model.State, _ Command) string {
				if next.WeiRaised.Cmp(prev.WeiRaised) < 0 {
					return "wei raised decreased"
				}
				if !next.Finalized && next.TokenSupply.Cmp(next.CrowdsaleSupply) != 0 {
					return fmt.Sprintf("supply %s != crowdsale supply %s before finalize", next.TokenSupply, next.CrowdsaleSupply)
				}
				return ""
			})
		},
		gen.UInt64(),
		gen.IntRange(1, 80),
	))

	properties.Property("a second finalize is always rejected", prop.ForAll(
		func(seed uint64, n int) string {
			return runRandom(seed, n, func(prev, next *model.State, c Command) string {
				if c.Kind == KindFinalize && prev.Finalized {
					return "finalize accepted twice"
				}
				return ""
			})
		},
		gen.UInt64(),
		gen.IntRange(1, 80),
	))

	properties.TestingRun(t)
}
