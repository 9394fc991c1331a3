package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Read configuration file and apply defaults.
 *
 * Description:	YAML, for example:
 *
 *			image_url: https://example.com/image.jpg
 *			interval: 5m
 *			encoder:
 *			  sample_rate: 44100
 *			  bits_per_sample: 16
 *			  fskid: RPI_SSTV
 *			delivery:
 *			  mode: ax25-kiss
 *			  device: /dev/rfcomm0
 *			  source_callsign: N0CALL
 *			  dest_callsign: CQ
 *
 *		Anything left out keeps the value from DefaultConfig.
 *		Unknown keys are an error so typos do not go unnoticed.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

type DeliveryMode string

const (
	DeliveryAX25Kiss DeliveryMode = "ax25-kiss"
	DeliveryRawKiss  DeliveryMode = "raw-kiss"
	DeliveryAudio    DeliveryMode = "audio"
	DeliveryWAV      DeliveryMode = "wav"
)

type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Attempts   int           `yaml:"attempts"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type EncoderConfig struct {
	SampleRate    int           `yaml:"sample_rate"`
	BitsPerSample int           `yaml:"bits_per_sample"`
	Timing        SampleTiming  `yaml:"timing"`
	VOX           bool          `yaml:"vox"`
	FSKID         string        `yaml:"fskid"`
	FSKIDPosition FSKIDPosition `yaml:"fskid_position"`
	CWID          string        `yaml:"cw_id"`
	CWWPM         int           `yaml:"cw_wpm"`
}

type DeliveryConfig struct {
	Mode           DeliveryMode  `yaml:"mode"`
	Device         string        `yaml:"device"`
	Baud           int           `yaml:"baud"`
	SourceCallsign string        `yaml:"source_callsign"`
	DestCallsign   string        `yaml:"dest_callsign"`
	AX25Ceiling    int           `yaml:"ax25_ceiling"`
	RawKissCeiling int           `yaml:"raw_kiss_ceiling"`
	Pace           time.Duration `yaml:"pace"`
	AudioDevice    string        `yaml:"audio_device"`
	TxDelay        time.Duration `yaml:"tx_delay"`
	PTT            PTTConfig     `yaml:"ptt"`
	WAVPattern     string        `yaml:"wav_pattern"`
}

type Config struct {
	ImageURL    string         `yaml:"image_url"`
	Interval    time.Duration  `yaml:"interval"`
	ErrorSleep  time.Duration  `yaml:"error_sleep"`
	Fetch       FetchConfig    `yaml:"fetch"`
	Encoder     EncoderConfig  `yaml:"encoder"`
	Delivery    DeliveryConfig `yaml:"delivery"`
	Log         LogConfig      `yaml:"log"`
	MetricsAddr string         `yaml:"metrics_addr"`
}

func DefaultConfig() *Config {
	return &Config{
		ImageURL:   "https://example.com/image.jpg",
		Interval:   300 * time.Second,
		ErrorSleep: 60 * time.Second,
		Fetch: FetchConfig{
			Timeout:    10 * time.Second,
			Attempts:   3,
			RetryDelay: 60 * time.Second,
		},
		Encoder: EncoderConfig{
			SampleRate:    DefaultSampleRate,
			BitsPerSample: 16,
			Timing:        TimingRounded,
			VOX:           true,
			FSKID:         "RPI_SSTV",
			FSKIDPosition: FSKIDAfter,
			CWID:          "",
			CWWPM:         DefaultMorseWPM,
		},
		Delivery: DeliveryConfig{
			Mode:           DeliveryAX25Kiss,
			Device:         "/dev/rfcomm0",
			Baud:           DefaultBaud,
			SourceCallsign: "N0CALL",
			DestCallsign:   "CQ",
			AX25Ceiling:    DefaultAX25Ceiling,
			RawKissCeiling: DefaultRawKissCeiling,
			Pace:           DefaultPace,
			AudioDevice:    "",
			TxDelay:        0,
			PTT:            PTTConfig{Method: PTTNone, Device: "", Line: 0, Invert: false},
			WAVPattern:     "sstv-%Y%m%d-%H%M%S.wav",
		},
		Log: LogConfig{
			Level:  "info",
			File:   "/var/log/sstv_service.log",
			Format: "text",
		},
		MetricsAddr: "",
	}
}

// LoadConfig reads the YAML file at path over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	var f, err = os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var cfg, loadErr = LoadConfigFromReader(f)
	if loadErr != nil {
		return nil, fmt.Errorf("config: %q: %w", path, loadErr)
	}

	return cfg, nil
}

func LoadConfigFromReader(r io.Reader) (*Config, error) {
	var cfg = DefaultConfig()

	var dec = yaml.NewDecoder(r)
	dec.KnownFields(true)

	var err = dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidConfiguration, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every problem at once.  Each wraps ErrInvalidConfiguration.
func (c *Config) Validate() error {
	var errs []error

	var invalid = func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...))
	}

	if c.Interval < 0 {
		invalid("interval %s is negative", c.Interval)
	}

	if c.ErrorSleep < 0 {
		invalid("error_sleep %s is negative", c.ErrorSleep)
	}

	if c.Fetch.Attempts < 1 {
		invalid("fetch.attempts %d must be at least 1", c.Fetch.Attempts)
	}

	if c.Fetch.Timeout <= 0 {
		invalid("fetch.timeout %s must be positive", c.Fetch.Timeout)
	}

	if c.Fetch.RetryDelay < 0 {
		invalid("fetch.retry_delay %s is negative", c.Fetch.RetryDelay)
	}

	errs = append(errs, c.SynthConfig().Validate())

	errs = append(errs, c.ToneOptions().Validate())

	var _, _, addrErr = c.Addresses()
	errs = append(errs, addrErr)

	switch c.Delivery.Mode {
	case DeliveryAX25Kiss, DeliveryRawKiss:
		if c.Delivery.Device == "" {
			invalid("delivery.device is required for mode %s", c.Delivery.Mode)
		}

		var policy, _ = c.ChunkPolicy()
		errs = append(errs, policy.Validate())
	case DeliveryAudio:
		errs = append(errs, c.Delivery.PTT.Validate())

		if c.Delivery.TxDelay < 0 {
			invalid("delivery.tx_delay %s is negative", c.Delivery.TxDelay)
		}
	case DeliveryWAV:
		if c.Delivery.WAVPattern == "" {
			invalid("delivery.wav_pattern is required for mode wav")
		}
	default:
		invalid("delivery.mode %q must be one of ax25-kiss, raw-kiss, audio, wav", c.Delivery.Mode)
	}

	errs = append(errs, c.Log.Validate())

	return errors.Join(errs...)
}

func (c *Config) SynthConfig() SynthConfig {
	return SynthConfig{
		SampleRateHz:  c.Encoder.SampleRate,
		BitsPerSample: c.Encoder.BitsPerSample,
		Timing:        c.Encoder.Timing,
	}
}

func (c *Config) ToneOptions() ToneOptions {
	return ToneOptions{
		VOX:           c.Encoder.VOX,
		FSKID:         c.Encoder.FSKID,
		FSKIDPosition: c.Encoder.FSKIDPosition,
		CWID:          c.Encoder.CWID,
		CWWPM:         c.Encoder.CWWPM,
	}
}

// Addresses returns destination then source.
func (c *Config) Addresses() (StationAddress, StationAddress, error) {
	var dest, destErr = ParseStationAddress(c.Delivery.DestCallsign)
	var src, srcErr = ParseStationAddress(c.Delivery.SourceCallsign)

	dest.IsLast = false
	src.IsLast = true

	return dest, src, errors.Join(destErr, srcErr)
}

// ChunkPolicy is the policy for a KISS delivery mode with the configured ceilings and pace.
func (c *Config) ChunkPolicy() (ChunkPolicy, error) {
	switch c.Delivery.Mode {
	case DeliveryAX25Kiss:
		var p = AX25ChunkPolicy()
		p.Ceiling = c.Delivery.AX25Ceiling
		p.Pace = c.Delivery.Pace
		p.Align = c.Encoder.BitsPerSample / 8

		return p, nil
	case DeliveryRawKiss:
		var p = RawKissChunkPolicy()
		p.Ceiling = c.Delivery.RawKissCeiling
		p.Pace = c.Delivery.Pace
		p.Align = c.Encoder.BitsPerSample / 8

		return p, nil
	default:
		return ChunkPolicy{}, fmt.Errorf("%w: mode %s does not use KISS", ErrInvalidConfiguration, c.Delivery.Mode) //nolint:exhaustruct
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	NewSink
 *
 * Purpose:	Build the delivery sink the configuration asks for.
 *
 * Returns:	The sink, and a closer for anything that lives as long
 *		as the process (currently only the pseudo terminal).
 *
 *---------------------------------------------------------------*/

func (c *Config) NewSink(logger *log.Logger) (Sink, io.Closer, error) {
	switch c.Delivery.Mode {
	case DeliveryAX25Kiss, DeliveryRawKiss:
		var policy, err = c.ChunkPolicy()
		if err != nil {
			return nil, nil, err
		}

		var dest, src, addrErr = c.Addresses()
		if addrErr != nil {
			return nil, nil, addrErr
		}

		var chunker, chunkErr = NewChunker(policy, dest, src, logger.WithPrefix("chunker"))
		if chunkErr != nil {
			return nil, nil, chunkErr
		}

		var open, closer, openErr = NewDeviceOpener(c.Delivery.Device, c.Delivery.Baud, logger.WithPrefix("device"))
		if openErr != nil {
			return nil, nil, openErr
		}

		return NewKissSink(chunker, open, logger.WithPrefix("kiss")), closer, nil

	case DeliveryAudio:
		var out = NewPortAudioOutput(c.Delivery.AudioDevice, logger.WithPrefix("audio"))
		return NewAudioSink(out, c.Delivery.PTT, c.Delivery.TxDelay, logger.WithPrefix("audio")), nopCloser{}, nil

	case DeliveryWAV:
		return NewWAVSink(c.Delivery.WAVPattern, logger.WithPrefix("wav")), nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown delivery mode %q", ErrInvalidConfiguration, c.Delivery.Mode)
	}
}
