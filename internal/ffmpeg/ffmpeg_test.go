package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveGOPClampsToRange(t *testing.T) {
	require.Equal(t, 24, DeriveGOP(1))
	require.Equal(t, 60, DeriveGOP(30))
	require.Equal(t, 240, DeriveGOP(1000))
}

func TestParseFrameRate(t *testing.T) {
	fps, ok := parseFrameRate("30000/1001")
	require.True(t, ok)
	require.InDelta(t, 29.97, fps, 0.01)

	_, ok = parseFrameRate("0/0")
	require.False(t, ok)

	_, ok = parseFrameRate("not-a-rate")
	require.False(t, ok)
}
