package sstv

import (
	"fmt"
	"strings"
)

/*
 * FSK station identification, sent as 6 bit characters at 22 ms per bit.
 * Framing is 0x20 0x2A, the text offset down by 0x20, then 0x01.
 */

const (
	FreqFSKIDBit1 = 1900
	FreqFSKIDBit0 = 2100
	MsecFSKIDBit  = 22

	fskidBitsPerChar = 6
)

// ValidateFSKID rejects identifiers that cannot be sent as 6 bit characters.
func ValidateFSKID(text string) error {
	for i, c := range strings.ToUpper(text) {
		if c < 0x20 || c > 0x5f {
			return fmt.Errorf("%w: FSK ID %q has unsupported character %q at %d", ErrInvalidConfiguration, text, c, i)
		}
	}

	return nil
}

func fskidPayload(text string) []byte {
	var upper = strings.ToUpper(text)
	var payload = make([]byte, 0, len(upper)+3)

	payload = append(payload, 0x20, 0x2a)
	for i := range len(upper) {
		payload = append(payload, upper[i]-0x20)
	}

	return append(payload, 0x01)
}

// FSKIDTones encodes text for transmission.
func FSKIDTones(text string) ([]ToneEvent, error) {
	var err = ValidateFSKID(text)
	if err != nil {
		return nil, err
	}

	var payload = fskidPayload(text)
	var events = make([]ToneEvent, 0, len(payload)*fskidBitsPerChar)

	for _, b := range payload {
		for range fskidBitsPerChar {
			var freq = float64(FreqFSKIDBit0)
			if b&1 == 1 {
				freq = FreqFSKIDBit1
			}

			events = append(events, ToneEvent{FrequencyHz: freq, DurationMs: MsecFSKIDBit})
			b >>= 1
		}
	}

	return events, nil
}
