package sstv

/*------------------------------------------------------------------
 *
 * Purpose:     Convert a tone sequence to PCM samples for writing to
 *		a .WAV file, a sound device or a KISS TNC.
 *
 * Description:	Direct digital synthesis with a single running phase
 *		accumulator.  The phase carries across tone boundaries so
 *		the waveform has no discontinuities when the frequency
 *		changes, which keeps the transmitted bandwidth down.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
)

const twoPi = 2 * math.Pi

const DefaultSampleRate = 44100

// SampleTiming selects how tone durations become whole sample counts.
type SampleTiming string

const (
	// TimingRounded gives every event round(ms * rate / 1000) samples.
	TimingRounded SampleTiming = "rounded"

	// TimingCarry carries the fractional remainder of each event into the next,
	// so that runs of short pixel tones keep their total duration.
	TimingCarry SampleTiming = "carry"
)

type SynthConfig struct {
	SampleRateHz  int
	BitsPerSample int
	Timing        SampleTiming
}

func (c SynthConfig) Validate() error {
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidConfiguration, c.SampleRateHz)
	}

	if c.BitsPerSample != 8 && c.BitsPerSample != 16 {
		return fmt.Errorf("%w: bits per sample %d must be 8 or 16", ErrInvalidConfiguration, c.BitsPerSample)
	}

	switch c.Timing {
	case "", TimingRounded, TimingCarry:
	default:
		return fmt.Errorf("%w: unknown sample timing %q", ErrInvalidConfiguration, c.Timing)
	}

	return nil
}

// oscillator is the phase accumulator.  phase is always in [0, 2pi).
// A zero frequency is silence and leaves the phase where it was.
type oscillator struct {
	sampleRate float64
	amplitude  float64
	phase      float64
}

func (o *oscillator) next(freq float64) int16 {
	if freq == 0 {
		return 0
	}

	o.phase = math.Mod(o.phase+twoPi*freq/o.sampleRate, twoPi)

	return int16(math.Round(math.Sin(o.phase) * o.amplitude))
}

type Synthesizer struct {
	cfg    SynthConfig
	logger *log.Logger
}

func NewSynthesizer(cfg SynthConfig, logger *log.Logger) (*Synthesizer, error) {
	var err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	if cfg.Timing == "" {
		cfg.Timing = TimingRounded
	}

	return &Synthesizer{cfg: cfg, logger: logger}, nil
}

func (s *Synthesizer) Config() SynthConfig {
	return s.cfg
}

// SamplesFor is the number of samples one event of durationMs occupies under TimingRounded.
func SamplesFor(durationMs float64, sampleRateHz int) int {
	return int(math.Round(durationMs * float64(sampleRateHz) / 1000))
}

/*-------------------------------------------------------------------
 *
 * Name:        Synthesize
 *
 * Purpose:     Render every event of a tone stream.
 *
 * Inputs:	ts	- Stream to consume.  It can not be used again.
 *
 * Returns:	Samples scaled to the full signed range of the
 *		configured bit depth.
 *
 *--------------------------------------------------------------------*/

func (s *Synthesizer) Synthesize(ts *ToneStream) (*SampleBuffer, error) {
	var buf = &SampleBuffer{
		SampleRateHz:  s.cfg.SampleRateHz,
		BitsPerSample: s.cfg.BitsPerSample,
		Samples:       nil,
	}

	var osc = oscillator{
		sampleRate: float64(s.cfg.SampleRateHz),
		amplitude:  float64(int(1)<<(s.cfg.BitsPerSample-1) - 1),
		phase:      0,
	}

	var samplesPerMs = float64(s.cfg.SampleRateHz) / 1000
	var carry = 0.0
	var events = 0

	var err = ts.Each(func(ev ToneEvent) bool {
		var n int

		if s.cfg.Timing == TimingCarry {
			carry += ev.DurationMs * samplesPerMs
			n = int(math.Floor(carry))
			carry -= float64(n)
		} else {
			n = SamplesFor(ev.DurationMs, s.cfg.SampleRateHz)
		}

		for range n {
			buf.Samples = append(buf.Samples, osc.next(ev.FrequencyHz))
		}

		events++

		return true
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("synthesized tone stream", "events", events, "samples", len(buf.Samples), "duration", buf.Duration())

	return buf, nil
}
