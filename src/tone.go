package sstv

import "iter"

// ToneEvent is one constant-frequency segment of the transmitted signal.
type ToneEvent struct {
	FrequencyHz float64
	DurationMs  float64
}

/*------------------------------------------------------------------
 *
 * Name:	ToneStream
 *
 * Purpose:	Ordered, finite, lazily generated sequence of tone events.
 *
 * Description:	A stream can be walked exactly once.  Anything that
 *		needs the tones again must ask the sequencer for a new
 *		stream, which is derived afresh from the raster.
 *
 *---------------------------------------------------------------*/

type ToneStream struct {
	seq      iter.Seq[ToneEvent]
	consumed bool
}

func NewToneStream(seq iter.Seq[ToneEvent]) *ToneStream {
	return &ToneStream{seq: seq, consumed: false}
}

// ToneSlice wraps a fixed list of events.
func ToneSlice(events []ToneEvent) iter.Seq[ToneEvent] {
	return func(yield func(ToneEvent) bool) {
		for _, ev := range events {
			if !yield(ev) {
				return
			}
		}
	}
}

func concatTones(parts ...iter.Seq[ToneEvent]) iter.Seq[ToneEvent] {
	return func(yield func(ToneEvent) bool) {
		for _, part := range parts {
			var stopped = false

			part(func(ev ToneEvent) bool {
				if !yield(ev) {
					stopped = true
					return false
				}

				return true
			})

			if stopped {
				return
			}
		}
	}
}

// Consumed reports whether the stream has already been walked.
func (ts *ToneStream) Consumed() bool {
	return ts.consumed
}

// Each walks the stream, stopping early if fn returns false.
// The stream is spent afterwards even if the walk stopped early.
func (ts *ToneStream) Each(fn func(ToneEvent) bool) error {
	if ts.consumed {
		return ErrStreamConsumed
	}

	ts.consumed = true

	for ev := range ts.seq {
		if !fn(ev) {
			break
		}
	}

	return nil
}

// Collect drains the stream into a slice.  Mostly for tests and tools.
func (ts *ToneStream) Collect() ([]ToneEvent, error) {
	var events []ToneEvent

	var err = ts.Each(func(ev ToneEvent) bool {
		events = append(events, ev)
		return true
	})

	return events, err
}
