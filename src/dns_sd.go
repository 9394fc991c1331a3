package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Find a KISS over TCP TNC announced with DNS-SD.
 *
 * Description:
 *
 *     Dire Wolf and samoyed announce their KISS TCP port as
 *     _kiss-tnc._tcp.  Rather than typing in an IP address and port,
 *     browse for the first one, or for one with a given instance name.
 *
 *     This uses the pure-Go github.com/brutella/dnssd package so no
 *     system daemon is needed.
 */

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const DNS_SD_SERVICE = "_kiss-tnc._tcp"

const dnsSDLookupTimeout = 5 * time.Second

// dnsSDLookup browses until ctx ends.  Tests replace it.
var dnsSDLookup = func(ctx context.Context, service string, add, rmv func(dnssd.BrowseEntry)) error {
	return dnssd.LookupType(ctx, service, add, rmv)
}

func dnsSDEntryAddr(entry dnssd.BrowseEntry) (string, bool) {
	var chosen net.IP

	for _, ip := range entry.IPs {
		if ip.To4() != nil {
			chosen = ip
			break
		}

		if chosen == nil {
			chosen = ip
		}
	}

	if chosen == nil {
		return "", false
	}

	return net.JoinHostPort(chosen.String(), strconv.Itoa(entry.Port)), true
}

// DiscoverKissTNC returns host:port of the first matching TNC.  An empty
// name matches any instance.
func DiscoverKissTNC(ctx context.Context, name string, logger *log.Logger) (string, error) {
	var lookupCtx, cancel = context.WithTimeout(ctx, dnsSDLookupTimeout)
	defer cancel()

	var mu sync.Mutex
	var found string

	var add = func(entry dnssd.BrowseEntry) {
		mu.Lock()
		defer mu.Unlock()

		if found != "" || (name != "" && entry.Name != name) {
			return
		}

		var addr, ok = dnsSDEntryAddr(entry)
		if !ok {
			return
		}

		logger.Info("DNS-SD: found KISS TNC", "name", entry.Name, "host", entry.Host, "addr", addr)

		found = addr

		cancel()
	}

	var rmv = func(dnssd.BrowseEntry) {}

	// Only returns when the context ends, or when browsing could not start.
	var lookupErr = dnsSDLookup(lookupCtx, DNS_SD_SERVICE+".local.", add, rmv)

	mu.Lock()
	defer mu.Unlock()

	if found == "" {
		if lookupErr != nil && !errors.Is(lookupErr, context.Canceled) && !errors.Is(lookupErr, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: DNS-SD browse for %s: %w", ErrDelivery, DNS_SD_SERVICE, lookupErr)
		}

		if name == "" {
			return "", fmt.Errorf("%w: no %s service found", ErrDelivery, DNS_SD_SERVICE)
		}

		return "", fmt.Errorf("%w: no %s service named %q found", ErrDelivery, DNS_SD_SERVICE, name)
	}

	return found, nil
}
