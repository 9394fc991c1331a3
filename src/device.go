package sstv

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// DeviceOpener yields the byte sink for one transmission.  The caller
// owns the handle until it closes it, at the end of that transmission.
type DeviceOpener func() (io.WriteCloser, error)

/*-------------------------------------------------------------------
 *
 * Name:	NewDeviceOpener
 *
 * Purpose:	Resolve a delivery device string.
 *
 * Inputs:	device	- One of
 *
 *			  /dev/ttyUSB0, COM3	Serial port to a KISS TNC.
 *			  tcp://host[:port]	Network KISS TNC.
 *			  dnssd			First _kiss-tnc._tcp on the LAN.
 *			  dnssd:name		The one with that instance name.
 *			  pty			Pseudo terminal, name is logged.
 *			  file:path		Append frames to a file.
 *
 *		baud	- Serial speed, ignored for everything else.
 *
 * Returns:	An opener, and a closer for process lifetime resources
 *		such as the pseudo terminal.
 *
 *---------------------------------------------------------------*/

func NewDeviceOpener(device string, baud int, logger *log.Logger) (DeviceOpener, io.Closer, error) {
	switch {
	case device == "":
		return nil, nil, fmt.Errorf("%w: no output device", ErrInvalidConfiguration)

	case device == "pty":
		var p = newKissPTY(logger)
		return p.open, p, nil

	case strings.HasPrefix(device, "tcp://"):
		var addr = strings.TrimPrefix(device, "tcp://")
		return func() (io.WriteCloser, error) {
			return OpenKissTCP(addr, logger)
		}, nopCloser{}, nil

	case device == "dnssd" || strings.HasPrefix(device, "dnssd:"):
		var name = strings.TrimPrefix(strings.TrimPrefix(device, "dnssd"), ":")
		return func() (io.WriteCloser, error) {
			var addr, err = DiscoverKissTNC(context.Background(), name, logger)
			if err != nil {
				return nil, err
			}

			return OpenKissTCP(addr, logger)
		}, nopCloser{}, nil

	case strings.HasPrefix(device, "file:"):
		var path = strings.TrimPrefix(device, "file:")
		return func() (io.WriteCloser, error) {
			var f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644) //nolint:gosec
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrDelivery, err)
			}

			return f, nil
		}, nopCloser{}, nil

	default:
		return func() (io.WriteCloser, error) {
			return OpenSerialPort(device, baud, logger)
		}, nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}
