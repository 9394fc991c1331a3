package sstv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_fskidPayload(t *testing.T) {
	assert.Equal(t, []byte{0x20, 0x2a, 'A' - 0x20, '1' - 0x20, 0x01}, fskidPayload("a1"))
}

func Test_FSKIDTones(t *testing.T) {
	var events, err = FSKIDTones("A")
	require.NoError(t, err)
	require.Len(t, events, 4*fskidBitsPerChar)

	for _, ev := range events {
		assert.InDelta(t, MsecFSKIDBit, ev.DurationMs, 1e-9)
	}

	// 0x20 = 100000, LSB first.
	var want = []float64{2100, 2100, 2100, 2100, 2100, 1900}
	for i, f := range want {
		assert.InDelta(t, f, events[i].FrequencyHz, 1e-9, "bit %d", i)
	}

	// 'A'-0x20 = 0x21 = 100001.
	var third = events[2*fskidBitsPerChar : 3*fskidBitsPerChar]
	assert.InDelta(t, 1900, third[0].FrequencyHz, 1e-9)
	assert.InDelta(t, 1900, third[5].FrequencyHz, 1e-9)
	assert.InDelta(t, 2100, third[1].FrequencyHz, 1e-9)
}

func Test_ValidateFSKID(t *testing.T) {
	require.NoError(t, ValidateFSKID("RPI_SSTV"))
	require.NoError(t, ValidateFSKID("n0call/p"))
	require.ErrorIs(t, ValidateFSKID("café"), ErrInvalidConfiguration)
	require.ErrorIs(t, ValidateFSKID("tab\there"), ErrInvalidConfiguration)
	require.ErrorIs(t, ValidateFSKID("{}"), ErrInvalidConfiguration)
}

func Test_FSKIDTones_Invalid(t *testing.T) {
	// Characters outside 0x20..0x5F would wrap or lose a bit in 6 bits.
	for _, text := range []string{"\t", "N0CALL~", "{"} {
		var events, err = FSKIDTones(text)
		require.ErrorIs(t, err, ErrInvalidConfiguration, "%q", text)
		assert.Nil(t, events)
	}
}
