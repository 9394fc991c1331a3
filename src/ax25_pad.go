package sstv

/*------------------------------------------------------------------
 *
 * Purpose:	Build AX.25 UI frames.
 *
 * Description:	Only unnumbered information frames with two addresses
 *		are produced: no digipeater path, no connected mode.
 *
 *		Each address is 7 bytes.  The callsign is upper case,
 *		padded with spaces to 6 characters and each character is
 *		shifted left one bit.  The last byte holds the SSID:
 *
 *			bit 7	  H / C bit, always 0 here.
 *			bits 6,5  Reserved, always 1.
 *			bits 4-1  SSID.
 *			bit 0	  Set on the last address of the header.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const AX25_ADDR_LEN = 7
const AX25_CALLSIGN_LEN = 6
const AX25_MIN_PACKET_LEN = 2*AX25_ADDR_LEN + 2

const AX25_UI_FRAME = 0x03      /* Control field value. */
const AX25_PID_NO_LAYER_3 = 0xf0 /* No layer 3 protocol. */

const AX25_MAX_SSID = 15

// DefaultAX25Ceiling is the largest payload sent in one frame unless configured otherwise.
const DefaultAX25Ceiling = 256

const SSID_RR_MASK = 0x60
const SSID_SSID_MASK = 0x1e
const SSID_SSID_SHIFT = 1
const SSID_LAST_MASK = 0x01

type StationAddress struct {
	Callsign string
	SSID     int
	IsLast   bool
}

func isCallsignChar(c rune) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// ParseStationAddress accepts "CALL" or "CALL-SSID".
func ParseStationAddress(s string) (StationAddress, error) {
	var addr = StationAddress{Callsign: "", SSID: 0, IsLast: false}

	var call, ssidText, hasSSID = strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "-")

	if len(call) < 1 || len(call) > AX25_CALLSIGN_LEN {
		return addr, fmt.Errorf("%w: callsign %q must be 1 to %d characters", ErrInvalidConfiguration, s, AX25_CALLSIGN_LEN)
	}

	for _, c := range call {
		if !isCallsignChar(c) {
			return addr, fmt.Errorf("%w: callsign %q contains %q", ErrInvalidConfiguration, s, c)
		}
	}

	addr.Callsign = call

	if hasSSID {
		var ssid, err = strconv.Atoi(ssidText)
		if err != nil || ssid < 0 || ssid > AX25_MAX_SSID {
			return addr, fmt.Errorf("%w: SSID in %q must be 0 to %d", ErrInvalidConfiguration, s, AX25_MAX_SSID)
		}

		addr.SSID = ssid
	}

	return addr, nil
}

func (a StationAddress) String() string {
	if a.SSID == 0 {
		return a.Callsign
	}

	return a.Callsign + "-" + strconv.Itoa(a.SSID)
}

// Encode produces the 7 byte on-air form.  Callsigns longer than 6 are truncated;
// ParseStationAddress never produces one.
func (a StationAddress) Encode() [AX25_ADDR_LEN]byte {
	var out [AX25_ADDR_LEN]byte

	var padded = strings.ToUpper(a.Callsign) + strings.Repeat(" ", AX25_CALLSIGN_LEN)
	for i := range AX25_CALLSIGN_LEN {
		out[i] = padded[i] << 1
	}

	out[AX25_CALLSIGN_LEN] = SSID_RR_MASK | byte(a.SSID<<SSID_SSID_SHIFT)&SSID_SSID_MASK
	if a.IsLast {
		out[AX25_CALLSIGN_LEN] |= SSID_LAST_MASK
	}

	return out
}

func decodeAddress(b []byte) StationAddress {
	var call = make([]byte, AX25_CALLSIGN_LEN)
	for i := range AX25_CALLSIGN_LEN {
		call[i] = b[i] >> 1
	}

	return StationAddress{
		Callsign: string(bytes.TrimRight(call, " ")),
		SSID:     int(b[AX25_CALLSIGN_LEN]&SSID_SSID_MASK) >> SSID_SSID_SHIFT,
		IsLast:   b[AX25_CALLSIGN_LEN]&SSID_LAST_MASK != 0,
	}
}

/*------------------------------------------------------------------------------
 *
 * Name:	EncodeAX25UI
 *
 * Purpose:	Construct a UI frame: dest, source, control, PID, payload.
 *
 * Inputs:	dest, src	- Station addresses.  The source is always
 *				  marked as the last address, the destination
 *				  never is, whatever the caller passed.
 *
 *		payload		- Information part.
 *
 *		ceiling		- Largest payload allowed.
 *
 * Returns:	Frame bytes without flags or FCS; the TNC adds those.
 *
 *------------------------------------------------------------------------------*/

func EncodeAX25UI(dest, src StationAddress, payload []byte, ceiling int) ([]byte, error) {
	if len(payload) > ceiling {
		return nil, fmt.Errorf("%w: AX.25 payload of %d bytes exceeds %d", ErrPayloadTooLarge, len(payload), ceiling)
	}

	dest.IsLast = false
	src.IsLast = true

	var d = dest.Encode()
	var s = src.Encode()

	var frame = make([]byte, 0, AX25_MIN_PACKET_LEN+len(payload))
	frame = append(frame, d[:]...)
	frame = append(frame, s[:]...)
	frame = append(frame, AX25_UI_FRAME, AX25_PID_NO_LAYER_3)
	frame = append(frame, payload...)

	return frame, nil
}

// DecodeAX25UI splits a frame built by EncodeAX25UI.  Used for monitoring and tests.
func DecodeAX25UI(frame []byte) (StationAddress, StationAddress, []byte, error) {
	var dest, src StationAddress

	if len(frame) < AX25_MIN_PACKET_LEN {
		return dest, src, nil, fmt.Errorf("AX.25 frame too short: %d bytes", len(frame))
	}

	dest = decodeAddress(frame[0:AX25_ADDR_LEN])
	src = decodeAddress(frame[AX25_ADDR_LEN : 2*AX25_ADDR_LEN])

	if dest.IsLast || !src.IsLast {
		return dest, src, nil, fmt.Errorf("AX.25 frame has an unsupported address field")
	}

	var control = frame[2*AX25_ADDR_LEN]
	var pid = frame[2*AX25_ADDR_LEN+1]

	if control != AX25_UI_FRAME || pid != AX25_PID_NO_LAYER_3 {
		return dest, src, nil, fmt.Errorf("not a UI frame: control 0x%02x pid 0x%02x", control, pid)
	}

	return dest, src, frame[AX25_MIN_PACKET_LEN:], nil
}
