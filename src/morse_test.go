package sstv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_morseUnitsStr(t *testing.T) {
	assert.Equal(t, 1, morseUnitsStr("E"))
	assert.Equal(t, 5, morseUnitsStr("EE"))
	assert.Equal(t, 9, morseUnitsStr("E E"))
	assert.Equal(t, 3, morseUnitsStr("t"))
	assert.Equal(t, 0, morseUnitsStr(""))
}

func Test_MorseTones_Paris(t *testing.T) {
	// At 20 WPM a unit is 60 ms.
	var events, err = MorseTones("N0", 20)
	require.NoError(t, err)

	// N is -. then a letter gap, then 0 is -----.
	require.Len(t, events, 2+1+1+4+5)
	assert.Equal(t, ToneEvent{FrequencyHz: MORSE_TONE, DurationMs: 180}, events[0])
	assert.Equal(t, ToneEvent{FrequencyHz: 0, DurationMs: 60}, events[1])
	assert.Equal(t, ToneEvent{FrequencyHz: MORSE_TONE, DurationMs: 60}, events[2])
	assert.Equal(t, ToneEvent{FrequencyHz: 0, DurationMs: 180}, events[3])
}

func Test_MorseTones_Length(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var text = rapid.StringMatching(`[A-Z0-9/ ]{1,12}`).Draw(t, "text")
		var wpm = rapid.IntRange(5, 60).Draw(t, "wpm")

		var events, err = MorseTones(text, wpm)
		if err != nil {
			t.Fatalf("%q at %d WPM: %v", text, wpm, err)
		}

		var total = 0.0
		for _, ev := range events {
			if ev.DurationMs <= 0 {
				t.Fatalf("%q at %d WPM: event %v has no duration", text, wpm, ev)
			}

			total += ev.DurationMs
		}

		var want = TIME_UNITS_TO_MS(morseUnitsStr(text), wpm)
		if total < want-1e-6 || total > want+1e-6 {
			t.Fatalf("%q at %d WPM: %f ms, want %f", text, wpm, total, want)
		}
	})
}

func Test_MorseTones_Silence(t *testing.T) {
	var s, err = NewSynthesizer(SynthConfig{SampleRateHz: 8000, BitsPerSample: 16, Timing: TimingRounded}, nopLogger())
	require.NoError(t, err)

	var buf, synthErr = s.Synthesize(NewToneStream(ToneSlice([]ToneEvent{{FrequencyHz: 0, DurationMs: 10}})))
	require.NoError(t, synthErr)

	assert.Equal(t, make([]int16, 80), buf.Samples)
}

func Test_ValidateMorseWPM(t *testing.T) {
	require.NoError(t, ValidateMorseWPM(DefaultMorseWPM))
	require.ErrorIs(t, ValidateMorseWPM(0), ErrInvalidConfiguration)
	require.ErrorIs(t, ValidateMorseWPM(100), ErrInvalidConfiguration)
}

func Test_MorseTones_BadSpeed(t *testing.T) {
	for _, wpm := range []int{-5, 0, 61} {
		var events, err = MorseTones("N0CALL", wpm)
		require.ErrorIs(t, err, ErrInvalidConfiguration, "%d WPM", wpm)
		assert.Nil(t, events)
	}
}
