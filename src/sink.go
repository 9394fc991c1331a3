package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Delivery paths for a synthesized transmission.
 *
 * Description:	One SampleBuffer, several ways out:
 *
 *		KissSink	Sample bytes chunked into KISS frames for a
 *				TNC, with or without AX.25 addressing,
 *				depending on the chunk policy.
 *
 *		AudioSink	Played on a sound card with PTT keyed.
 *
 *		WAVSink		Saved to a file for later or for checking.
 *
 *		Every sink acquires its device when a transmission starts
 *		and releases it before returning, success or not.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

type Sink interface {
	Name() string
	Transmit(buf *SampleBuffer) (TransmitStats, error)
}

type KissSink struct {
	chunker *Chunker
	open    DeviceOpener
	logger  *log.Logger
}

func NewKissSink(chunker *Chunker, open DeviceOpener, logger *log.Logger) *KissSink {
	return &KissSink{chunker: chunker, open: open, logger: logger}
}

func (k *KissSink) Name() string {
	return k.chunker.Policy().Name
}

func (k *KissSink) Transmit(buf *SampleBuffer) (stats TransmitStats, err error) {
	var data = buf.Bytes()

	k.logger.Info("sending samples to TNC", "samples", buf.Len(), "rate", buf.SampleRateHz, "bytes", len(data), "policy", k.Name())

	if len(buf.Samples) > 0 {
		k.logger.Debug("sample data", "first", buf.Samples[:min(100, len(buf.Samples))])
	}

	var device, openErr = k.open()
	if openErr != nil {
		return stats, openErr
	}

	defer func() {
		var closeErr = device.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("%w: closing device: %w", ErrDelivery, closeErr)
		}
	}()

	stats, err = k.chunker.Send(device, data)
	if err != nil {
		return stats, err
	}

	k.logger.Info("transmission completed", "frames", stats.Frames, "wire_bytes", stats.WireLen)

	return stats, nil
}

type AudioSink struct {
	out     AudioOutput
	ptt     PTTConfig
	openPTT func(PTTConfig) (PTT, error)
	txDelay time.Duration
	logger  *log.Logger
}

func NewAudioSink(out AudioOutput, ptt PTTConfig, txDelay time.Duration, logger *log.Logger) *AudioSink {
	return &AudioSink{out: out, ptt: ptt, openPTT: OpenPTT, txDelay: txDelay, logger: logger}
}

func (a *AudioSink) Name() string {
	return "audio"
}

func (a *AudioSink) Transmit(buf *SampleBuffer) (stats TransmitStats, err error) {
	var ptt, pttErr = a.openPTT(a.ptt)
	if pttErr != nil {
		return stats, pttErr
	}

	defer func() {
		var closeErr = ptt.Close()
		if closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	err = ptt.Key(true)
	if err != nil {
		return stats, err
	}

	if a.txDelay > 0 {
		time.Sleep(a.txDelay)
	}

	err = a.out.Play(buf)
	if err != nil {
		return stats, err
	}

	stats.PayloadLen = len(buf.Samples) * buf.BytesPerSample()
	stats.WireLen = stats.PayloadLen

	return stats, ptt.Key(false)
}

type WAVSink struct {
	// Pattern is a file name with strftime conversions.
	Pattern string
	logger  *log.Logger
	now     func() time.Time
}

func NewWAVSink(pattern string, logger *log.Logger) *WAVSink {
	return &WAVSink{Pattern: pattern, logger: logger, now: time.Now}
}

func (w *WAVSink) Name() string {
	return "wav"
}

func (w *WAVSink) Transmit(buf *SampleBuffer) (TransmitStats, error) {
	var stats TransmitStats

	var name, err = strftime.Format(w.Pattern, w.now())
	if err != nil {
		return stats, fmt.Errorf("%w: WAV file name %q: %w", ErrInvalidConfiguration, w.Pattern, err)
	}

	var encoded bytes.Buffer

	err = WriteWAV(&encoded, buf)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	var dir = filepath.Dir(name)

	err = os.MkdirAll(dir, 0o755) //nolint:gosec
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	err = os.WriteFile(name, encoded.Bytes(), 0o644) //nolint:gosec
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	stats.PayloadLen = len(buf.Samples) * buf.BytesPerSample()
	stats.WireLen = encoded.Len()

	w.logger.Info("wrote WAV file", "file", name, "duration", buf.Duration())

	return stats, nil
}
