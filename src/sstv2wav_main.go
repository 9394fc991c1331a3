package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Encode one picture as Martin M1 without a radio.
 *
 * Description:	Handy for checking the encoder with an SSTV decoder
 *		program.  Writes a WAV file by default, or with --kiss
 *		the exact byte stream that would be sent to the TNC.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

type encodeOptions struct {
	input    string
	output   string
	synth    SynthConfig
	tones    ToneOptions
	kiss     bool
	raw      bool
	source   string
	dest     string
	logLevel string
}

func loadInputImage(ctx context.Context, input string) (image.Image, error) {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return FetchImage(ctx, nil, input, 30*time.Second)
	}

	return LoadImageFile(input)
}

// encodeImage does the work of sstv2wav and returns the bytes to write.
func encodeImage(ctx context.Context, opts encodeOptions, logger *log.Logger) ([]byte, error) {
	var err = opts.tones.Validate()
	if err != nil {
		return nil, err
	}

	var img image.Image

	img, err = loadInputImage(ctx, opts.input)
	if err != nil {
		return nil, err
	}

	var mode, modeErr = NewMartinM1(img)
	if modeErr != nil {
		return nil, modeErr
	}

	var synth, synthErr = NewSynthesizer(opts.synth, logger)
	if synthErr != nil {
		return nil, synthErr
	}

	var tones, tonesErr = mode.Tones(opts.tones)
	if tonesErr != nil {
		return nil, tonesErr
	}

	var buf, bufErr = synth.Synthesize(tones)
	if bufErr != nil {
		return nil, bufErr
	}

	var out bytes.Buffer

	if !opts.kiss {
		err = WriteWAV(&out, buf)
		if err != nil {
			return nil, err
		}

		return out.Bytes(), nil
	}

	var policy = AX25ChunkPolicy()
	if opts.raw {
		policy = RawKissChunkPolicy()
	}

	policy.Pace = 0
	policy.Align = buf.BytesPerSample()

	var dest, destErr = ParseStationAddress(opts.dest)
	if destErr != nil {
		return nil, destErr
	}

	var src, srcErr = ParseStationAddress(opts.source)
	if srcErr != nil {
		return nil, srcErr
	}

	var chunker, chunkErr = NewChunker(policy, dest, src, logger)
	if chunkErr != nil {
		return nil, chunkErr
	}

	var stats, writeErr = chunker.Send(&out, buf.Bytes())
	if writeErr != nil {
		return nil, writeErr
	}

	logger.Info("framed", "frames", stats.Frames, "payload", stats.PayloadLen, "wire", stats.WireLen)

	return out.Bytes(), nil
}

func SSTV2WavMain() {
	var output = pflag.StringP("output-file", "o", "sstv.wav", "Output file.")
	var sampleRate = pflag.IntP("audio-sample-rate", "r", DefaultSampleRate, "Audio sample rate.")
	var eightBit = pflag.BoolP("eight-bps", "8", false, "8 bit audio rather than 16.")
	var timing = pflag.StringP("timing", "t", string(TimingRounded), "Sample timing: rounded or carry.")
	var noVOX = pflag.Bool("no-vox", false, "Leave out the VOX preamble.")
	var fskid = pflag.StringP("fskid", "f", "", "Station identifier sent as FSK after the image.")
	var fskidBefore = pflag.Bool("fskid-before", false, "Send the FSK identifier before the VIS header.")
	var cwid = pflag.String("cwid", "", "Identification sent in Morse code at the very end.")
	var cwWPM = pflag.Int("cw-wpm", DefaultMorseWPM, "Morse code speed in words per minute.")
	var kiss = pflag.BoolP("kiss", "k", false, "Write the KISS frame stream instead of WAV.")
	var raw = pflag.Bool("raw", false, "With --kiss, use raw KISS framing without AX.25 addresses.")
	var source = pflag.StringP("source", "s", "N0CALL", "Source callsign for AX.25 framing.")
	var dest = pflag.StringP("dest", "d", "CQ", "Destination callsign for AX.25 framing.")
	var logLevel = pflag.StringP("log-level", "L", "info", "Log level.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Encode an image as Martin M1 SSTV.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] image-file-or-url\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  %s -o test.wav -f N0CALL picture.jpg\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example:  %s --kiss -o frames.kiss picture.png\n", os.Args[0])
	}

	pflag.Parse()

	if *help || pflag.NArg() != 1 {
		pflag.Usage()

		if *help {
			os.Exit(0)
		}

		os.Exit(1)
	}

	var bits = 16
	if *eightBit {
		bits = 8
	}

	var position = FSKIDAfter
	if *fskidBefore {
		position = FSKIDBefore
	}

	var opts = encodeOptions{
		input:    pflag.Arg(0),
		output:   *output,
		synth:    SynthConfig{SampleRateHz: *sampleRate, BitsPerSample: bits, Timing: SampleTiming(*timing)},
		tones:    ToneOptions{VOX: !*noVOX, FSKID: *fskid, FSKIDPosition: position, CWID: *cwid, CWWPM: *cwWPM},
		kiss:     *kiss,
		raw:      *raw,
		source:   *source,
		dest:     *dest,
		logLevel: *logLevel,
	}

	var logger, logCloser, logErr = NewLogger(LogConfig{Level: opts.logLevel, File: "", Format: "text"}, os.Stderr)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", logErr)
		os.Exit(1)
	}
	defer logCloser.Close() //nolint:errcheck

	var data, err = encodeImage(context.Background(), opts, logger)
	if err != nil {
		logger.Error("encode failed", "err", err)
		os.Exit(1) //nolint:gocritic
	}

	err = os.WriteFile(opts.output, data, 0o644) //nolint:gosec
	if err != nil {
		logger.Error("could not write output", "file", opts.output, "err", err)
		os.Exit(1)
	}

	logger.Info("wrote", "file", opts.output, "bytes", len(data))
}
