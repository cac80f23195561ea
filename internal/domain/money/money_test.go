package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse("12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.500000", Format(d))

	_, err = Parse("")
	require.Error(t, err)

	_, err = Parse("abc")
	require.Error(t, err)
}

func TestFormat_AlwaysSixDigits(t *testing.T) {
	cases := map[string]string{
		"0":         "0.000000",
		"10":        "10.000000",
		"12.5":      "12.500000",
		"0.1234567": "0.123457",
		"-3.4":      "-3.400000",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format(MustParse(in)), "input %q", in)
	}
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "0.000001", Format(Round(MustParse("0.0000005"))))
	assert.Equal(t, "0.000000", Format(Round(MustParse("0.0000004"))))
}

func TestExactAddition(t *testing.T) {
	// 0.1 + 0.2 is exact in decimal arithmetic.
	sum := MustParse("0.1").Add(MustParse("0.2"))
	assert.Equal(t, "0.300000", Format(sum))
}
