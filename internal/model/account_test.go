package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountRoundTrip(t *testing.T) {
	for _, a := range []Account{0, 1, 17, ZeroAccount, External} {
		got, err := ParseAccount(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestParseAccountRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "acct", "acct-1", "acct01", "account1", "0x00"} {
		_, err := ParseAccount(s)
		assert.Error(t, err, s)
	}
}
