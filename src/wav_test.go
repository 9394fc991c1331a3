package sstv

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WriteWAV_16(t *testing.T) {
	var buf = &SampleBuffer{SampleRateHz: 44100, BitsPerSample: 16, Samples: []int16{0, 1, -1, 32767, -32767}}

	var out bytes.Buffer
	require.NoError(t, WriteWAV(&out, buf))

	var data = out.Bytes()
	require.Len(t, data, wavHeaderLen+10)

	var header wavHeader
	require.NoError(t, binary.Read(bytes.NewReader(data), binary.LittleEndian, &header))

	assert.Equal(t, "RIFF", string(header.ChunkID[:]))
	assert.Equal(t, uint32(36+10), header.ChunkSize)
	assert.Equal(t, uint16(1), header.AudioFormat)
	assert.Equal(t, uint16(1), header.NumChannels)
	assert.Equal(t, uint32(44100), header.SampleRate)
	assert.Equal(t, uint32(88200), header.ByteRate)
	assert.Equal(t, uint16(2), header.BlockAlign)
	assert.Equal(t, uint16(16), header.BitsPerSample)
	assert.Equal(t, uint32(10), header.Subchunk2Size)
	assert.Equal(t, []byte{0, 0, 1, 0, 0xff, 0xff, 0xff, 0x7f, 0x01, 0x80}, data[wavHeaderLen:])
}

func Test_WriteWAV_8(t *testing.T) {
	var buf = &SampleBuffer{SampleRateHz: 8000, BitsPerSample: 8, Samples: []int16{0, 127, -127}}

	var out bytes.Buffer
	require.NoError(t, WriteWAV(&out, buf))

	// WAVE stores 8 bit samples unsigned, centred on 0x80.
	assert.Equal(t, []byte{0x80, 0xff, 0x01}, out.Bytes()[wavHeaderLen:])

	// The buffer itself is untouched.
	assert.Equal(t, []byte{0x00, 0x7f, 0x81}, buf.Bytes())
}

func Test_SampleBuffer(t *testing.T) {
	var buf = &SampleBuffer{SampleRateHz: 1000, BitsPerSample: 16, Samples: make([]int16, 2500)}

	assert.Equal(t, 2500, buf.Len())
	assert.Equal(t, 2500*time.Millisecond, buf.Duration())
	assert.Equal(t, 2, buf.BytesPerSample())
	assert.Len(t, buf.Bytes(), 5000)

	var eight = &SampleBuffer{SampleRateHz: 1000, BitsPerSample: 8, Samples: []int16{-127, 5}}
	assert.Equal(t, []int8{-127, 5}, eight.Int8())
	assert.Equal(t, 1, eight.BytesPerSample())

	assert.Zero(t, (&SampleBuffer{}).Duration()) //nolint:exhaustruct
}
