package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Activate the output control lines for push to talk (PTT)
 *		around audio playback.
 *
 * Description:	Supported methods:
 *
 *		none	Rely on VOX.  The default VOX preamble helps here.
 *
 *		rts	RTS line of a serial port.
 *		dtr	DTR line of a serial port.
 *			Both use the TIOCMGET / TIOCMSET ioctls.
 *
 *		gpio	A GPIO line through the Linux character device,
 *			e.g. chip "gpiochip0", line 17.
 *
 *		Each can be inverted.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

type PTTMethod string

const (
	PTTNone PTTMethod = "none"
	PTTRTS  PTTMethod = "rts"
	PTTDTR  PTTMethod = "dtr"
	PTTGPIO PTTMethod = "gpio"
)

type PTTConfig struct {
	Method PTTMethod `yaml:"method"`
	Device string    `yaml:"device"` // Serial port, or GPIO chip name.
	Line   int       `yaml:"line"`   // GPIO line offset.
	Invert bool      `yaml:"invert"`
}

func (c PTTConfig) Validate() error {
	switch c.Method {
	case "", PTTNone:
	case PTTRTS, PTTDTR:
		if c.Device == "" {
			return fmt.Errorf("%w: PTT method %s needs a serial device", ErrInvalidConfiguration, c.Method)
		}
	case PTTGPIO:
		if c.Device == "" || c.Line < 0 {
			return fmt.Errorf("%w: PTT method gpio needs a chip and a line", ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown PTT method %q", ErrInvalidConfiguration, c.Method)
	}

	return nil
}

type PTT interface {
	Key(on bool) error
	Close() error
}

// OpenPTT claims the control line.  Close releases it, unkeyed.
func OpenPTT(cfg PTTConfig) (PTT, error) {
	switch cfg.Method {
	case "", PTTNone:
		return noPTT{}, nil
	case PTTRTS:
		return openSerialPTT(cfg, unix.TIOCM_RTS)
	case PTTDTR:
		return openSerialPTT(cfg, unix.TIOCM_DTR)
	case PTTGPIO:
		return openGPIOPTT(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown PTT method %q", ErrInvalidConfiguration, cfg.Method)
	}
}

type noPTT struct{}

func (noPTT) Key(bool) error { return nil }
func (noPTT) Close() error   { return nil }

type serialPTT struct {
	f      *os.File
	bit    int
	invert bool
}

func _TIOCM(fd int, value int, on bool) error {
	var stuff, err = unix.IoctlGetInt(fd, unix.TIOCMGET)
	if err != nil {
		return err
	}

	if on {
		stuff |= value
	} else {
		stuff &= ^value
	}

	return unix.IoctlSetPointerInt(fd, unix.TIOCMSET, stuff)
}

func openSerialPTT(cfg PTTConfig, bit int) (*serialPTT, error) {
	var f, err = os.OpenFile(serialDeviceName(cfg.Device, nopLogger()), os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open PTT device %s: %w", ErrDelivery, cfg.Device, err)
	}

	var p = &serialPTT{f: f, bit: bit, invert: cfg.Invert}

	err = p.Key(false)
	if err != nil {
		f.Close() //nolint:errcheck,gosec
		return nil, err
	}

	return p, nil
}

func (p *serialPTT) Key(on bool) error {
	var err = _TIOCM(int(p.f.Fd()), p.bit, on != p.invert) //nolint:gosec
	if err != nil {
		return fmt.Errorf("%w: PTT %s: %w", ErrDelivery, p.f.Name(), err)
	}

	return nil
}

func (p *serialPTT) Close() error {
	var keyErr = p.Key(false)
	var closeErr = p.f.Close()

	if keyErr != nil {
		return keyErr
	}

	return closeErr
}

// gpiodOutputLine is the part of *gpiocdev.Line we use.
type gpiodOutputLine interface {
	SetValue(value int) error
	Close() error
}

type gpioPTT struct {
	line   gpiodOutputLine
	invert bool
}

func openGPIOPTT(cfg PTTConfig) (*gpioPTT, error) {
	var initial = 0
	if cfg.Invert {
		initial = 1
	}

	var line, err = gpiocdev.RequestLine(cfg.Device, cfg.Line,
		gpiocdev.AsOutput(initial), gpiocdev.WithConsumer("samoyed-sstv"))
	if err != nil {
		return nil, fmt.Errorf("%w: could not claim GPIO %s line %d: %w", ErrDelivery, cfg.Device, cfg.Line, err)
	}

	return &gpioPTT{line: line, invert: cfg.Invert}, nil
}

func (p *gpioPTT) Key(on bool) error {
	var v = 0
	if on != p.invert {
		v = 1
	}

	var err = p.line.SetValue(v)
	if err != nil {
		return fmt.Errorf("%w: PTT GPIO: %w", ErrDelivery, err)
	}

	return nil
}

func (p *gpioPTT) Close() error {
	var keyErr = p.Key(false)
	var closeErr = p.line.Close()

	if keyErr != nil {
		return keyErr
	}

	return closeErr
}
