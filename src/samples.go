package sstv

import (
	"encoding/binary"
	"time"
)

// SampleBuffer holds mono signed PCM.  Samples are stored as int16 for both
// depths; with 8 bit they stay within -127..127.
type SampleBuffer struct {
	SampleRateHz  int
	BitsPerSample int
	Samples       []int16
}

func (b *SampleBuffer) Len() int {
	return len(b.Samples)
}

func (b *SampleBuffer) Duration() time.Duration {
	if b.SampleRateHz <= 0 {
		return 0
	}

	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRateHz)
}

func (b *SampleBuffer) BytesPerSample() int {
	return b.BitsPerSample / 8
}

// Bytes serializes the samples: 16 bit little endian, or one two's complement byte each for 8 bit.
func (b *SampleBuffer) Bytes() []byte {
	if b.BitsPerSample == 8 {
		var out = make([]byte, len(b.Samples))
		for i, s := range b.Samples {
			out[i] = byte(int8(s))
		}

		return out
	}

	var out = make([]byte, 2*len(b.Samples))
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}

	return out
}

func (b *SampleBuffer) Int8() []int8 {
	var out = make([]int8, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = int8(s)
	}

	return out
}
