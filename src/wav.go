package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Save samples as a RIFF/WAVE file.
 *
 * Description:	Mono PCM.  WAVE stores 8 bit samples as unsigned
 *		bytes centred on 128, so those are offset on the way
 *		out; 16 bit samples are written unchanged.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"io"
)

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

const wavHeaderLen = 44

func WriteWAV(w io.Writer, buf *SampleBuffer) error {
	var data = buf.Bytes()

	if buf.BitsPerSample == 8 {
		for i := range data {
			data[i] += 0x80
		}
	}

	var blockAlign = buf.BytesPerSample()

	var header = wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(wavHeaderLen - 8 + len(data)), //nolint:gosec
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   1,
		SampleRate:    uint32(buf.SampleRateHz),              //nolint:gosec
		ByteRate:      uint32(buf.SampleRateHz * blockAlign), //nolint:gosec
		BlockAlign:    uint16(blockAlign),                    //nolint:gosec
		BitsPerSample: uint16(buf.BitsPerSample),             //nolint:gosec
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(data)), //nolint:gosec
	}

	var err = binary.Write(w, binary.LittleEndian, &header)
	if err != nil {
		return fmt.Errorf("writing WAV header: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing WAV data: %w", err)
	}

	return nil
}
