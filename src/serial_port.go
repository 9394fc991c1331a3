package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to serial port, hiding operating system differences.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/term"
)

const DefaultBaud = 9600

// Longest we wait for the UART to empty after a frame.
const serialDrainTimeout = 5 * time.Second

type serialPort struct {
	*term.Term

	name string
}

// Drain waits until everything written has left the UART, so pacing
// between frames is measured from the end of the previous frame.
func (s *serialPort) Drain() error {
	var deadline = time.Now().Add(serialDrainTimeout)

	for {
		var queued, err = s.Buffered()
		if err != nil {
			return fmt.Errorf("%s: output queue: %w", s.name, err)
		}

		if queued == 0 {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%s: %d bytes still queued after %s", s.name, queued, serialDrainTimeout)
		}

		time.Sleep(time.Millisecond)
	}
}

// serialDeviceName converts "COMn" to the Linux equivalent /dev/ttyS(n-1).
func serialDeviceName(devicename string, logger *log.Logger) string {
	if len(devicename) > 3 && strings.EqualFold(devicename[:3], "COM") {
		var n, err = strconv.Atoi(devicename[3:])
		if err == nil {
			if n < 1 {
				n = 1
			}

			var linuxname = fmt.Sprintf("/dev/ttyS%d", n-1)
			logger.Info("converted serial port name", "from", devicename, "to", linuxname)

			return linuxname
		}
	}

	return devicename
}

/*-------------------------------------------------------------------
 *
 * Name:	OpenSerialPort
 *
 * Purpose:	Open serial port in raw mode.
 *
 * Inputs:	devicename	- Usually like /dev/tty...
 *				  "COMn" also allowed and converted to /dev/ttyS(n-1)
 *				  Could be /dev/rfcomm0 for Bluetooth.
 *
 *		baud		- Speed.  1200, 4800, 9600 bps, etc.
 *				  If 0, leave it alone.
 *
 *---------------------------------------------------------------*/

func OpenSerialPort(devicename string, baud int, logger *log.Logger) (*serialPort, error) {
	var linuxname = serialDeviceName(devicename, logger)

	var fd, err = term.Open(linuxname, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open serial port %s: %w", ErrDelivery, linuxname, err)
	}

	switch baud {
	case 0: /* Leave it alone. */
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		err = fd.SetSpeed(baud)
	default:
		logger.Error("unsupported serial speed, using 4800", "port", linuxname, "baud", baud)
		err = fd.SetSpeed(4800)
	}

	if err != nil {
		fd.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("%w: could not set speed on %s: %w", ErrDelivery, linuxname, err)
	}

	logger.Debug("opened serial port", "port", linuxname, "baud", baud)

	return &serialPort{Term: fd, name: linuxname}, nil
}
