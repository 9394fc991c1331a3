package sstv

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestChunker(t require.TestingT, policy ChunkPolicy) (*Chunker, *[]time.Duration) {
	var c, err = NewChunker(policy,
		StationAddress{Callsign: "CQ", SSID: 0, IsLast: false},
		StationAddress{Callsign: "N0CALL", SSID: 0, IsLast: true},
		nopLogger())
	require.NoError(t, err)

	var sleeps []time.Duration
	c.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	return c, &sleeps
}

// reassemble undoes the framing of every frame in order.
func reassemble(t require.TestingT, policy ChunkPolicy, frames [][]byte) []byte {
	var out []byte

	for _, f := range frames {
		var payload, err = KissUnwrap(f)
		require.NoError(t, err)

		if policy.Addressed {
			var _, _, info, decErr = DecodeAX25UI(payload)
			require.NoError(t, decErr)

			payload = info
		}

		out = append(out, payload...)
	}

	return out
}

func collectFrames(t require.TestingT, c *Chunker, data []byte) [][]byte {
	var frames [][]byte

	for frame, err := range c.Frames(data) {
		require.NoError(t, err)

		frames = append(frames, frame)
	}

	return frames
}

func Test_Chunker_AX25(t *testing.T) {
	var c, _ = newTestChunker(t, AX25ChunkPolicy())

	var data = bytes.Repeat([]byte{0x01, 0xC0, 0xDB, 0x7F}, 250)
	var frames = collectFrames(t, c, data)

	require.Len(t, frames, 4)

	for _, f := range frames {
		var payload, err = KissUnwrap(f)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(payload)-AX25_MIN_PACKET_LEN, DefaultAX25Ceiling)
	}

	assert.Equal(t, data, reassemble(t, c.Policy(), frames))
}

func Test_Chunker_RawKiss(t *testing.T) {
	var c, _ = newTestChunker(t, RawKissChunkPolicy())

	// Worst case: every byte needs escaping.
	var data = bytes.Repeat([]byte{0xC0}, 2000)
	var frames = collectFrames(t, c, data)

	for _, f := range frames {
		assert.LessOrEqual(t, len(f), DefaultRawKissCeiling)
		assert.Equal(t, byte(KISS_CMD_DATA_FRAME), f[1])
	}

	// 797 bytes of escaped budget hold 398 escaped bytes per frame.
	assert.Len(t, frames, 6)
	assert.Equal(t, data, reassemble(t, c.Policy(), frames))
}

func Test_Chunker_RawKiss_WholeSamples(t *testing.T) {
	var policy = RawKissChunkPolicy()
	policy.Align = 2

	var c, _ = newTestChunker(t, policy)

	// No escaping, so the 797 byte budget would otherwise cut a sample in half.
	var data = bytes.Repeat([]byte{0x12, 0x34}, 1000)
	var frames = collectFrames(t, c, data)
	require.Len(t, frames, 3)

	var lengths []int

	for _, f := range frames {
		var payload, err = KissUnwrap(f)
		require.NoError(t, err)

		lengths = append(lengths, len(payload))
	}

	assert.Equal(t, []int{796, 796, 408}, lengths)
	assert.Equal(t, data, reassemble(t, policy, frames))
}

func Test_Chunker_AlignProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var policy = RawKissChunkPolicy()
		policy.Align = rapid.IntRange(1, 2).Draw(t, "align")
		policy.Ceiling = rapid.IntRange(KISS_FRAME_OVERHEAD+8, 1000).Draw(t, "ceiling")

		var c, _ = newTestChunker(t, policy)
		var samples = rapid.SliceOfN(rapid.SampledFrom([]byte{0x00, 0x55, FEND, FESC}), 0, 1500).Draw(t, "samples")
		var data = bytes.Repeat(samples, policy.Align)

		var frames = collectFrames(t, c, data)

		for i, f := range frames {
			var payload, err = KissUnwrap(f)
			if err != nil {
				t.Fatalf("frame %d: %v", i, err)
			}

			if len(payload)%policy.Align != 0 {
				t.Fatalf("frame %d carries %d bytes, not a multiple of %d", i, len(payload), policy.Align)
			}
		}

		if !bytes.Equal(reassemble(t, policy, frames), data) {
			t.Fatalf("reassembled data differs")
		}
	})
}

func Test_Chunker_CeilingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var policy = AX25ChunkPolicy()

		if rapid.Bool().Draw(t, "raw") {
			policy = RawKissChunkPolicy()
			policy.Addressed = rapid.Bool().Draw(t, "addressed")
			policy.Ceiling = rapid.IntRange(KISS_FRAME_OVERHEAD+policy.headerLen()+2, 1000).Draw(t, "ceiling")
		} else {
			policy.Ceiling = rapid.IntRange(1, 600).Draw(t, "ceiling")
		}

		var c, _ = newTestChunker(t, policy)
		var data = rapid.SliceOfN(rapid.SampledFrom([]byte{0x00, 0x55, FEND, FESC, TFEND, TFESC}), 0, 3000).Draw(t, "data")

		var frames = collectFrames(t, c, data)

		for _, f := range frames {
			if policy.Scope == CeilingPostFraming && len(f) > policy.Ceiling {
				t.Fatalf("frame of %d bytes over ceiling %d", len(f), policy.Ceiling)
			}

			if bytes.IndexByte(f[1:len(f)-1], FEND) >= 0 {
				t.Fatalf("FEND inside frame body")
			}
		}

		var back = reassemble(t, policy, frames)
		if !bytes.Equal(back, data) {
			t.Fatalf("reassembled data differs")
		}
	})
}

func Test_Chunker_Send_Paces(t *testing.T) {
	var c, sleeps = newTestChunker(t, AX25ChunkPolicy())

	var out bytes.Buffer
	var data = make([]byte, 3*DefaultAX25Ceiling+10)

	var stats, err = c.Send(&out, data)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Frames)
	assert.Equal(t, len(data), stats.PayloadLen)
	assert.Equal(t, out.Len(), stats.WireLen)
	assert.Equal(t, []time.Duration{DefaultPace, DefaultPace, DefaultPace}, *sleeps)
	assert.Len(t, SplitKissFrames(out.Bytes()), 4)
}

type failingWriter struct {
	okWrites int
	writes   int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.writes >= w.okWrites {
		return 0, errors.New("device unplugged")
	}

	w.writes++

	return len(p), nil
}

func Test_Chunker_Send_WriteError(t *testing.T) {
	var c, _ = newTestChunker(t, AX25ChunkPolicy())

	var stats, err = c.Send(&failingWriter{okWrites: 2, writes: 0}, make([]byte, 1000))
	require.ErrorIs(t, err, ErrDelivery)
	assert.Equal(t, 2, stats.Frames)
}

type drainingWriter struct {
	bytes.Buffer

	drains int
}

func (w *drainingWriter) Drain() error {
	w.drains++
	return nil
}

func Test_Chunker_Send_Drains(t *testing.T) {
	var c, _ = newTestChunker(t, RawKissChunkPolicy())

	var w drainingWriter

	var stats, err = c.Send(&w, make([]byte, 1000))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Frames)
	assert.Equal(t, 2, w.drains)
}

func Test_ChunkPolicy_Validate(t *testing.T) {
	require.NoError(t, AX25ChunkPolicy().Validate())
	require.NoError(t, RawKissChunkPolicy().Validate())

	var p = AX25ChunkPolicy()
	p.Ceiling = 0
	require.ErrorIs(t, p.Validate(), ErrInvalidConfiguration)

	p = RawKissChunkPolicy()
	p.Ceiling = 4
	require.ErrorIs(t, p.Validate(), ErrInvalidConfiguration)

	p = RawKissChunkPolicy()
	p.Pace = -time.Second
	require.ErrorIs(t, p.Validate(), ErrInvalidConfiguration)

	p = RawKissChunkPolicy()
	p.Align = -2
	require.ErrorIs(t, p.Validate(), ErrInvalidConfiguration)

	p = RawKissChunkPolicy()
	p.Scope = "sideways"
	require.ErrorIs(t, p.Validate(), ErrInvalidConfiguration)
}
