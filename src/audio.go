package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Play samples on a sound card, for transmitters with an
 *		audio input rather than a KISS TNC.
 *
 * Description:	Uses PortAudio in blocking mode.  The device is opened
 *		for one transmission and closed again afterwards.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

const audioFramesPerBuffer = 1024

// AudioOutput plays a whole buffer and returns when playback has finished.
type AudioOutput interface {
	Play(buf *SampleBuffer) error
}

type PortAudioOutput struct {
	// Device is a substring of the output device name.  Empty means the default device.
	Device string
	logger *log.Logger
}

func NewPortAudioOutput(device string, logger *log.Logger) *PortAudioOutput {
	return &PortAudioOutput{Device: device, logger: logger}
}

func (p *PortAudioOutput) findDevice() (*portaudio.DeviceInfo, error) {
	if p.Device == "" {
		return portaudio.DefaultOutputDevice()
	}

	var devices, err = portaudio.Devices()
	if err != nil {
		return nil, err
	}

	for _, d := range devices {
		if d.MaxOutputChannels > 0 && strings.Contains(d.Name, p.Device) {
			return d, nil
		}
	}

	return nil, fmt.Errorf("no audio output device matching %q", p.Device)
}

func (p *PortAudioOutput) Play(buf *SampleBuffer) error {
	var err = portaudio.Initialize()
	if err != nil {
		return fmt.Errorf("%w: audio initialize: %w", ErrDelivery, err)
	}
	defer portaudio.Terminate() //nolint:errcheck

	var device, devErr = p.findDevice()
	if devErr != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, devErr)
	}

	var params = portaudio.StreamParameters{ //nolint:exhaustruct
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultHighOutputLatency,
		},
		SampleRate:      float64(buf.SampleRateHz),
		FramesPerBuffer: audioFramesPerBuffer,
	}

	p.logger.Info("playing audio", "device", device.Name, "rate", buf.SampleRateHz, "bits", buf.BitsPerSample, "duration", buf.Duration())

	if buf.BitsPerSample == 8 {
		return playBlocks(params, buf.Int8())
	}

	return playBlocks(params, buf.Samples)
}

func playBlocks[S int8 | int16](params portaudio.StreamParameters, samples []S) error {
	var out = make([]S, audioFramesPerBuffer)

	var stream, err = portaudio.OpenStream(params, out)
	if err != nil {
		return fmt.Errorf("%w: open audio stream: %w", ErrDelivery, err)
	}
	defer stream.Close() //nolint:errcheck

	err = stream.Start()
	if err != nil {
		return fmt.Errorf("%w: start audio stream: %w", ErrDelivery, err)
	}

	for len(samples) > 0 {
		var n = copy(out, samples)
		clear(out[n:]) // Pad the last block with silence.
		samples = samples[n:]

		err = stream.Write()
		if err != nil {
			stream.Abort() //nolint:errcheck,gosec
			return fmt.Errorf("%w: audio write: %w", ErrDelivery, err)
		}
	}

	err = stream.Stop()
	if err != nil {
		return fmt.Errorf("%w: stop audio stream: %w", ErrDelivery, err)
	}

	return nil
}
