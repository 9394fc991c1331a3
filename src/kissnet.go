package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	KISS over TCP to a network TNC such as Dire Wolf
 *		(default port 8001).
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
	"time"

	"github.com/charmbracelet/log"
)

const DefaultKissPort = 8001

const kissDialTimeout = 10 * time.Second

func OpenKissTCP(addr string, logger *log.Logger) (net.Conn, error) {
	var _, _, splitErr = net.SplitHostPort(addr)
	if splitErr != nil {
		addr = net.JoinHostPort(addr, fmt.Sprint(DefaultKissPort))
	}

	var conn, err = net.DialTimeout("tcp", addr, kissDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: could not connect to KISS TNC %s: %w", ErrDelivery, addr, err)
	}

	logger.Debug("connected to network TNC", "addr", addr)

	return conn, nil
}
