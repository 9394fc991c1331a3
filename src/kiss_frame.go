package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	KISS framing for the serial, network and pseudo terminal
 *		TNC paths.
 *
 * Description: The KISS TNC protocol is described in http://www.ka9q.net/papers/kiss.html
 *
 * 		Briefly, a frame is composed of
 *
 *			* FEND (0xC0)
 *			* Type byte - radio channel in upper nybble,
 *				command in lower nybble.
 *			* Contents - with special escape sequences so a 0xc0
 *				byte in the data is not taken as end of frame.
 *			* FEND
 *
 *		We only ever send data frames on channel 0.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"fmt"
)

const KISS_CMD_DATA_FRAME = 0

const FEND = 0xC0
const FESC = 0xDB
const TFEND = 0xDC
const TFESC = 0xDD

// KISS_FRAME_OVERHEAD is the leading FEND, type byte and trailing FEND.
const KISS_FRAME_OVERHEAD = 3

// KissEscape replaces FEND and FESC in the payload with their two byte escapes.
func KissEscape(in []byte) []byte {
	var buf bytes.Buffer

	buf.Grow(len(in))

	for _, b := range in {
		switch b {
		case FEND:
			buf.WriteByte(FESC)
			buf.WriteByte(TFEND)
		case FESC:
			buf.WriteByte(FESC)
			buf.WriteByte(TFESC)
		default:
			buf.WriteByte(b)
		}
	}

	return buf.Bytes()
}

// KissEscapedLen is len(KissEscape(in)) without building it.
func KissEscapedLen(in []byte) int {
	var n = len(in)

	for _, b := range in {
		if b == FEND || b == FESC {
			n++
		}
	}

	return n
}

// KissUnescape is the inverse of KissEscape.
func KissUnescape(in []byte) ([]byte, error) {
	var escapedMode = false
	var buf bytes.Buffer

	for i, b := range in {
		if b == FEND {
			return nil, fmt.Errorf("%w: FEND in the middle of a frame at offset %d", ErrKissProtocol, i)
		}

		if escapedMode {
			switch b {
			case TFESC:
				buf.WriteByte(FESC)
			case TFEND:
				buf.WriteByte(FEND)
			default:
				return nil, fmt.Errorf("%w: found 0x%02x after FESC at offset %d", ErrKissProtocol, b, i)
			}

			escapedMode = false
		} else if b == FESC {
			escapedMode = true
		} else {
			buf.WriteByte(b)
		}
	}

	if escapedMode {
		return nil, fmt.Errorf("%w: frame ends with FESC", ErrKissProtocol)
	}

	return buf.Bytes(), nil
}

// KissEncapsulate produces a complete data frame: FEND, 0x00, escaped payload, FEND.
func KissEncapsulate(payload []byte) []byte {
	var out = make([]byte, 0, KissEscapedLen(payload)+KISS_FRAME_OVERHEAD)

	out = append(out, FEND, KISS_CMD_DATA_FRAME)
	out = append(out, KissEscape(payload)...)

	return append(out, FEND)
}

// KissUnwrap strips the delimiters and type byte and returns the original payload.
// The leading FEND is optional, as some TNCs omit it.
func KissUnwrap(in []byte) ([]byte, error) {
	if len(in) < 2 {
		return nil, fmt.Errorf("%w: message less than minimum length", ErrKissProtocol)
	}

	if in[len(in)-1] != FEND {
		return nil, fmt.Errorf("%w: frame should end with FEND", ErrKissProtocol)
	}

	in = in[:len(in)-1]

	if len(in) > 0 && in[0] == FEND {
		in = in[1:]
	}

	if len(in) == 0 {
		return nil, fmt.Errorf("%w: frame has no type byte", ErrKissProtocol)
	}

	if in[0]&0x0f != KISS_CMD_DATA_FRAME {
		return nil, fmt.Errorf("%w: unexpected command 0x%02x", ErrKissProtocol, in[0])
	}

	return KissUnescape(in[1:])
}

// SplitKissFrames splits a captured byte stream into FEND delimited frames.
// Empty frames between back to back FENDs are skipped.
func SplitKissFrames(stream []byte) [][]byte {
	var frames [][]byte

	for _, part := range bytes.Split(stream, []byte{FEND}) {
		if len(part) == 0 {
			continue
		}

		var frame = make([]byte, 0, len(part)+2)
		frame = append(frame, FEND)
		frame = append(frame, part...)
		frames = append(frames, append(frame, FEND))
	}

	return frames
}
