package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Offer the KISS stream on a pseudo terminal, for software
 *		TNCs and soundmodems that expect a serial port.
 *
 * Description:	The pseudo terminal is created once and kept for the life
 *		of the process so that the slave name stays the same from
 *		one transmission to the next.
 *
 *		If no one is reading from the other end, the buffer space
 *		eventually fills up and writes block.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
)

type kissPTY struct {
	mu     sync.Mutex
	master *os.File
	slave  *os.File
	logger *log.Logger
}

func newKissPTY(logger *log.Logger) *kissPTY {
	return &kissPTY{mu: sync.Mutex{}, master: nil, slave: nil, logger: logger}
}

func (k *kissPTY) open() (io.WriteCloser, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.master == nil {
		var ptmx, pts, err = pty.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: could not create pseudo terminal for KISS TNC: %w", ErrDelivery, err)
		}

		k.master = ptmx
		k.slave = pts

		k.logger.Info("virtual KISS TNC is available", "device", pts.Name())
	}

	return nopWriteCloser{Writer: k.master}, nil
}

func (k *kissPTY) Name() string {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.slave == nil {
		return ""
	}

	return k.slave.Name()
}

func (k *kissPTY) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.master == nil {
		return nil
	}

	var err = k.master.Close()
	k.slave.Close() //nolint:errcheck,gosec

	k.master = nil
	k.slave = nil

	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
