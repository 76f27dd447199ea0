package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.50000000", FormatAmount(150000000))
	assert.Equal(t, "0.00000001", FormatAmount(1))
	assert.Equal(t, "0.00000000", FormatAmount(0))
	assert.Equal(t, "184467440737.09551615", FormatAmount(^uint64(0)))
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(150000000), v)

	v, err = ParseAmount("184467440737.09551615")
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), v)

	for _, bad := range []string{"-1", "abc", "0.000000001", "184467440737.09551616"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestAmountRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 99, 100000000, 123456789012} {
		back, err := ParseAmount(FormatAmount(v))
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
}
