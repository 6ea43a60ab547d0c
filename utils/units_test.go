package utils

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("1")
	require.NoError(t, err)
	assert.Equal(t, OneUnit, v)

	v, err = ParseUnits("0.01")
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", v.Dec())

	_, err = ParseUnits("0.0000000000000000001")
	assert.Error(t, err)
	_, err = ParseUnits("-1")
	assert.Error(t, err)
	_, err = ParseUnits("abc")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1000")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), v.Uint64())

	v, err = ParseAmount("0.5u")
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", v.Dec())
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0.99", FormatUnits(uint256.MustFromDecimal("990000000000000000")))
	assert.Equal(t, "1", FormatUnits(OneUnit))
	assert.Equal(t, "0", FormatUnits(nil))
}

func TestRemaining(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "expired", Remaining(now, now))
	assert.Equal(t, "2d1h0m0s", Remaining(now, now.Add(49*time.Hour)))
	assert.Equal(t, "30s", Remaining(now, now.Add(30*time.Second)))
}

func TestShortenID(t *testing.T) {
	assert.Equal(t, "abc", ShortenID("abc"))
	assert.Equal(t, "0x123456...90abcdef", ShortenID("0x1234567890abcdef"))
	assert.Equal(t, "abcd...ijkl", ShortenID("abcdefghijkl"))
}
