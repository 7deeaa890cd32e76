package sequence

import (
	"fmt"

	"pgregory.net/rand"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/model"
)

// Generator draws command sequences.
type Generator struct {
	cfg   command.GenConfig
	kinds []command.Kind
}

// NewGenerator returns a Generator sampling kinds uniformly. With no kinds
// it samples the whole catalog.
func NewGenerator(cfg command.GenConfig, kinds ...command.Kind) *Generator {
	if len(kinds) == 0 {
		kinds = command.Kinds()
	}
	return &Generator{cfg: cfg, kinds: append([]command.Kind(nil), kinds...)}
}

// Generate draws n commands starting from st. fundCrowdsaleToCap stays a
// single macro element; the driver expands it against the state it reaches,
// so it still funds the sale after shrinking drops the commands before it.
func (g *Generator) Generate(seed uint64, st *model.State, n int) ([]command.Command, error) {
	r := rand.New(seed)
	cur := st
	out := make([]command.Command, 0, n)
	for i := 0; i < n; i++ {
		spec, err := command.Lookup(g.kinds[r.Intn(len(g.kinds))])
		if err != nil {
			return nil, err
		}
		c := spec.Generate(r, cur, g.cfg)
		next, err := command.Simulate(cur, []command.Command{c}, g.cfg.Accounts)
		if err != nil {
			return nil, fmt.Errorf("simulate generated command %d (%s): %w", i, c, err)
		}
		cur = next
		out = append(out, c)
	}
	return out, nil
}

// Seeds derives n run seeds from base.
func Seeds(base uint64, n int) []uint64 {
	r := rand.New(base)
	out := make([]uint64, n)
	for i := range out {
		out[i] = r.Uint64()
	}
	return out
}
