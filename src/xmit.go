package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Split a sample stream into frames a TNC can swallow and
 *		write them out at a pace it can keep up with.
 *
 * Description:	Two ceilings are in use, depending on the path:
 *
 *		pre-framing	The limit is on the data carried by each
 *				frame.  256 bytes matches the AX.25
 *				information field most TNCs accept.
 *
 *		post-framing	The limit is on the serialized KISS frame
 *				after escaping, e.g. 800 bytes for the raw
 *				path where a hardware buffer is the limit.
 *
 *		Every chunk is framed on its own, so a write never splits
 *		a frame and no frame spans two writes.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/charmbracelet/log"
)

type CeilingScope string

const (
	CeilingPreFraming  CeilingScope = "pre-framing"
	CeilingPostFraming CeilingScope = "post-framing"
)

const DefaultRawKissCeiling = 800
const DefaultPace = 20 * time.Millisecond

type ChunkPolicy struct {
	Name      string
	Ceiling   int
	Scope     CeilingScope
	Addressed bool // Wrap each chunk in an AX.25 UI frame.
	Pace      time.Duration
	Align     int // Chunk lengths are a multiple of this, e.g. bytes per sample, when the ceiling allows.
}

func AX25ChunkPolicy() ChunkPolicy {
	return ChunkPolicy{
		Name:      "ax25-kiss",
		Ceiling:   DefaultAX25Ceiling,
		Scope:     CeilingPreFraming,
		Addressed: true,
		Pace:      DefaultPace,
		Align:     1,
	}
}

func RawKissChunkPolicy() ChunkPolicy {
	return ChunkPolicy{
		Name:      "raw-kiss",
		Ceiling:   DefaultRawKissCeiling,
		Scope:     CeilingPostFraming,
		Addressed: false,
		Pace:      DefaultPace,
		Align:     1,
	}
}

// headerLen is what framing adds around the data, before escaping of the data itself.
func (p ChunkPolicy) headerLen() int {
	if p.Addressed {
		return AX25_MIN_PACKET_LEN
	}

	return 0
}

func (p ChunkPolicy) Validate() error {
	if p.Pace < 0 {
		return fmt.Errorf("%w: pace %s is negative", ErrInvalidConfiguration, p.Pace)
	}

	if p.Align < 0 {
		return fmt.Errorf("%w: alignment %d is negative", ErrInvalidConfiguration, p.Align)
	}

	switch p.Scope {
	case CeilingPreFraming:
		if p.Ceiling < 1 {
			return fmt.Errorf("%w: chunk ceiling %d must be positive", ErrInvalidConfiguration, p.Ceiling)
		}
	case CeilingPostFraming:
		// Room for the header and one data byte that needs escaping.
		var minimum = KISS_FRAME_OVERHEAD + p.headerLen() + 2
		if p.Ceiling < minimum {
			return fmt.Errorf("%w: framed ceiling %d is below the minimum of %d", ErrInvalidConfiguration, p.Ceiling, minimum)
		}
	default:
		return fmt.Errorf("%w: unknown ceiling scope %q", ErrInvalidConfiguration, p.Scope)
	}

	return nil
}

type TransmitStats struct {
	Frames     int
	PayloadLen int // Data bytes carried, before framing.
	WireLen    int // Bytes written, after framing.
}

type Chunker struct {
	policy ChunkPolicy
	dest   StationAddress
	src    StationAddress
	logger *log.Logger
	sleep  func(time.Duration)
}

func NewChunker(policy ChunkPolicy, dest, src StationAddress, logger *log.Logger) (*Chunker, error) {
	var err = policy.Validate()
	if err != nil {
		return nil, err
	}

	return &Chunker{
		policy: policy,
		dest:   dest,
		src:    src,
		logger: logger,
		sleep:  time.Sleep,
	}, nil
}

func (c *Chunker) Policy() ChunkPolicy {
	return c.policy
}

// nextChunkLen decides how many bytes of data start the next frame.
// A chunk that does not reach the end of data is cut back to a multiple
// of the policy alignment, unless that would leave it empty.
func (c *Chunker) nextChunkLen(data []byte) int {
	var n = c.fitChunkLen(data)

	if a := c.policy.Align; a > 1 && n < len(data) && n >= a {
		n -= n % a
	}

	return n
}

func (c *Chunker) fitChunkLen(data []byte) int {
	if c.policy.Scope == CeilingPreFraming {
		return min(len(data), c.policy.Ceiling)
	}

	var budget = c.policy.Ceiling - KISS_FRAME_OVERHEAD - c.policy.headerLen()
	var used = 0
	var n = 0

	for n < len(data) {
		var cost = 1
		if data[n] == FEND || data[n] == FESC {
			cost = 2
		}

		if used+cost > budget {
			break
		}

		used += cost
		n++
	}

	return n
}

func (c *Chunker) frame(chunk []byte) ([]byte, error) {
	var payload = chunk

	if c.policy.Addressed {
		var ceiling = c.policy.Ceiling
		if c.policy.Scope == CeilingPostFraming {
			ceiling = len(chunk)
		}

		var ax25, err = EncodeAX25UI(c.dest, c.src, chunk, ceiling)
		if err != nil {
			return nil, err
		}

		payload = ax25
	}

	var kiss = KissEncapsulate(payload)

	if c.policy.Scope == CeilingPostFraming && len(kiss) > c.policy.Ceiling {
		return nil, fmt.Errorf("%w: KISS frame of %d bytes exceeds %d", ErrPayloadTooLarge, len(kiss), c.policy.Ceiling)
	}

	return kiss, nil
}

// Frames yields one complete KISS frame per chunk of data.
// The data slice is only read.
func (c *Chunker) Frames(data []byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		c.chunks(data, func(_ int, frame []byte, err error) bool {
			return yield(frame, err)
		})
	}
}

func (c *Chunker) chunks(data []byte, yield func(n int, frame []byte, err error) bool) {
	for len(data) > 0 {
		var n = c.nextChunkLen(data)

		var frame, err = c.frame(data[:n])
		if !yield(n, frame, err) || err != nil {
			return
		}

		data = data[n:]
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        Send
 *
 * Purpose:     Send all frames for data to w, one write per frame,
 *		waiting the policy pace between frames so the TNC input
 *		buffer is not overrun.
 *
 * Returns:	What was sent, and the first error.  Nothing is retried.
 *
 *--------------------------------------------------------------------*/

func (c *Chunker) Send(w io.Writer, data []byte) (TransmitStats, error) {
	var stats TransmitStats
	var failure error

	c.chunks(data, func(n int, frame []byte, err error) bool {
		if err != nil {
			failure = err
			return false
		}

		if stats.Frames > 0 && c.policy.Pace > 0 {
			c.sleep(c.policy.Pace)
		}

		var _, writeErr = w.Write(frame)
		if writeErr != nil {
			failure = fmt.Errorf("%w: writing frame %d: %w", ErrDelivery, stats.Frames, writeErr)
			return false
		}

		if d, ok := w.(drainer); ok {
			var drainErr = d.Drain()
			if drainErr != nil {
				failure = fmt.Errorf("%w: draining after frame %d: %w", ErrDelivery, stats.Frames, drainErr)
				return false
			}
		}

		stats.Frames++
		stats.PayloadLen += n
		stats.WireLen += len(frame)

		c.logger.Debug("wrote frame", "policy", c.policy.Name, "frame", stats.Frames, "data", n, "size", len(frame))

		if stats.Frames == 1 && c.logger.GetLevel() <= log.DebugLevel {
			c.logger.Debug("first frame\n" + hexDump(frame))
		}

		return true
	})

	return stats, failure
}

// drainer is implemented by devices that can wait for their output queue to empty.
type drainer interface {
	Drain() error
}
