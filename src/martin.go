package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Martin M1 tone sequencing.
 *
 * Description:	The image is sent one row at a time as three colour
 *		scan lines, green then blue then red.  Each pixel is a
 *		0.146 ms tone between 1500 Hz (black) and 2300 Hz (white).
 *		Every scan line is followed by a 4.862 ms 1200 Hz sync
 *		pulse and a 0.5 ms 1462 Hz separator.  One extra sync and
 *		separator pair leads the first row.
 *
 *		Ahead of the image goes the VIS header which tells the
 *		receiver which mode follows, optionally preceded by a
 *		VOX preamble to open the transmitter.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"iter"

	"golang.org/x/image/draw"
)

const (
	FreqVISBit1   = 1100
	FreqSync      = 1200
	FreqVISBit0   = 1300
	FreqSeparator = 1462
	FreqBlack     = 1500
	FreqVISStart  = 1900
	FreqWhite     = 2300
	FreqRange     = FreqWhite - FreqBlack

	MsecVISStart = 300
	MsecVISSync  = 10
	MsecVISBit   = 30
	MsecVOXTone  = 100
)

const (
	MartinM1VISCode     = 44
	MartinM1Width       = 320
	MartinM1Height      = 256
	MartinM1SyncMs      = 4.862
	MartinM1SeparatorMs = 0.5
	MartinM1PixelMs     = 0.146
)

// Receivers listen for this before the VIS header.
var voxFrequencies = []float64{1900, 1500, 1900, 1500, 2300, 1500, 2300, 1500}

// ByteToFreq maps a channel intensity to its tone, 0 -> 1500 Hz, 255 -> 2300 Hz.
func ByteToFreq(value uint8) float64 {
	return FreqBlack + FreqRange*float64(value)/255
}

// NormalizeRaster converts any image to an opaque 320x256 RGB raster.
// Alpha is dropped rather than blended, so transparent areas keep their colour.
func NormalizeRaster(img image.Image) *image.RGBA {
	var bounds = img.Bounds()
	var opaque = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var c = color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA) //nolint:forcetypeassert
			c.A = 0xff
			opaque.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, c)
		}
	}

	var dst = image.NewRGBA(image.Rect(0, 0, MartinM1Width, MartinM1Height))

	if bounds.Dx() == MartinM1Width && bounds.Dy() == MartinM1Height {
		draw.Draw(dst, dst.Bounds(), opaque, image.Point{}, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), opaque, opaque.Bounds(), draw.Src, nil)
	}

	return dst
}

// FSKIDPosition says where the station identifier goes relative to the image.
type FSKIDPosition string

const (
	FSKIDAfter  FSKIDPosition = "after"
	FSKIDBefore FSKIDPosition = "before"
)

type ToneOptions struct {
	VOX           bool
	FSKID         string
	FSKIDPosition FSKIDPosition
	CWID          string // Morse identification sent last, if not empty.
	CWWPM         int
}

// MartinM1 holds the normalized raster.  It never modifies it.
type MartinM1 struct {
	raster *image.RGBA
}

func NewMartinM1(img image.Image) (*MartinM1, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no image", ErrAcquisition)
	}

	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image %v", ErrAcquisition, img.Bounds())
	}

	return &MartinM1{raster: NormalizeRaster(img)}, nil
}

func (m *MartinM1) Raster() *image.RGBA {
	return m.raster
}

// ImageTones is the scan portion only: leading sync, then 256 rows of G, B, R lines.
func (m *MartinM1) ImageTones() *ToneStream {
	return NewToneStream(m.scan)
}

// cwWPM is the Morse speed, with 0 meaning the default.
func (o ToneOptions) cwWPM() int {
	if o.CWWPM == 0 {
		return DefaultMorseWPM
	}

	return o.CWWPM
}

// Validate reports every identification setting that can not be sent.
func (o ToneOptions) Validate() error {
	var errs []error

	if o.FSKID != "" {
		errs = append(errs, ValidateFSKID(o.FSKID))
	}

	switch o.FSKIDPosition {
	case "", FSKIDAfter, FSKIDBefore:
	default:
		errs = append(errs, fmt.Errorf("%w: fskid_position %q must be before or after", ErrInvalidConfiguration, o.FSKIDPosition))
	}

	if o.CWID != "" {
		errs = append(errs, ValidateMorseWPM(o.cwWPM()))
	}

	return errors.Join(errs...)
}

// Tones is the complete transmission: VOX, VIS header, image, FSK ID and optional CW ID.
// Nothing is generated if the options are invalid.
func (m *MartinM1) Tones(opts ToneOptions) (*ToneStream, error) {
	var err = opts.Validate()
	if err != nil {
		return nil, err
	}

	var parts []iter.Seq[ToneEvent]

	if opts.VOX {
		parts = append(parts, ToneSlice(VOXPreamble()))
	}

	var fskid []ToneEvent
	if opts.FSKID != "" {
		fskid, err = FSKIDTones(opts.FSKID)
		if err != nil {
			return nil, err
		}
	}

	if opts.FSKIDPosition == FSKIDBefore {
		parts = append(parts, ToneSlice(fskid))
	}

	parts = append(parts, ToneSlice(VISHeader(MartinM1VISCode)), m.scan)

	if opts.FSKIDPosition != FSKIDBefore {
		parts = append(parts, ToneSlice(fskid))
	}

	if opts.CWID != "" {
		var cw, cwErr = MorseTones(opts.CWID, opts.cwWPM())
		if cwErr != nil {
			return nil, cwErr
		}

		parts = append(parts, ToneSlice(cw))
	}

	return NewToneStream(concatTones(parts...)), nil
}

type colorChannel int

const (
	channelGreen colorChannel = iota
	channelBlue
	channelRed
)

var martinM1ChannelOrder = [3]colorChannel{channelGreen, channelBlue, channelRed}

func channelValue(px color.RGBA, ch colorChannel) uint8 {
	switch ch {
	case channelGreen:
		return px.G
	case channelBlue:
		return px.B
	default:
		return px.R
	}
}

func syncAndSeparator(yield func(ToneEvent) bool) bool {
	return yield(ToneEvent{FrequencyHz: FreqSync, DurationMs: MartinM1SyncMs}) &&
		yield(ToneEvent{FrequencyHz: FreqSeparator, DurationMs: MartinM1SeparatorMs})
}

func (m *MartinM1) scan(yield func(ToneEvent) bool) {
	if !syncAndSeparator(yield) {
		return
	}

	for y := range MartinM1Height {
		for _, ch := range martinM1ChannelOrder {
			for x := range MartinM1Width {
				var value = channelValue(m.raster.RGBAAt(x, y), ch)
				if !yield(ToneEvent{FrequencyHz: ByteToFreq(value), DurationMs: MartinM1PixelMs}) {
					return
				}
			}

			if !syncAndSeparator(yield) {
				return
			}
		}
	}
}

func VOXPreamble() []ToneEvent {
	var events = make([]ToneEvent, 0, len(voxFrequencies))
	for _, f := range voxFrequencies {
		events = append(events, ToneEvent{FrequencyHz: f, DurationMs: MsecVOXTone})
	}

	return events
}

/*-------------------------------------------------------------------
 *
 * Name:        VISHeader
 *
 * Purpose:     Vertical Interval Signalling code identifying the mode.
 *
 * Description:	Leader, break, leader, start bit, seven data bits
 *		least significant first, even parity, stop bit.
 *
 *--------------------------------------------------------------------*/

func VISHeader(code int) []ToneEvent {
	var events = []ToneEvent{
		{FrequencyHz: FreqVISStart, DurationMs: MsecVISStart},
		{FrequencyHz: FreqSync, DurationMs: MsecVISSync},
		{FrequencyHz: FreqVISStart, DurationMs: MsecVISStart},
		{FrequencyHz: FreqSync, DurationMs: MsecVISBit}, // start bit
	}

	var ones = 0

	for i := range 7 {
		var bit = (code >> i) & 1
		ones += bit
		events = append(events, ToneEvent{FrequencyHz: visBitFreq(bit), DurationMs: MsecVISBit})
	}

	events = append(events,
		ToneEvent{FrequencyHz: visBitFreq(ones % 2), DurationMs: MsecVISBit},
		ToneEvent{FrequencyHz: FreqSync, DurationMs: MsecVISBit}, // stop bit
	)

	return events
}

func visBitFreq(bit int) float64 {
	if bit == 1 {
		return FreqVISBit1
	}

	return FreqVISBit0
}
