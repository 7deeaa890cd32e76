package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"52", "52"},
		{"7 wei", "7"},
		{"22 gwei", "22000000000"},
		{"100 ether", "100000000000000000000"},
		{"  3   Ether ", "3000000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", "-1", "1.5", "1e18", "5 szabo", "1 2 3", "ten"} {
		_, err := ParseAmount(in)
		assert.Error(t, err, in)
	}
}
