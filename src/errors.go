package sstv

import "errors"

/*------------------------------------------------------------------
 *
 * Purpose:   	Error kinds surfaced by the encoder and delivery path.
 *
 * Description:	Callers test with errors.Is.  Every failure aborts the
 *		current cycle; nothing in this package retries.
 *
 *---------------------------------------------------------------*/

var (
	// ErrAcquisition means the source image could not be fetched or decoded.
	ErrAcquisition = errors.New("image acquisition failed")

	// ErrInvalidConfiguration is returned before any synthesis starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrPayloadTooLarge indicates a chunking policy bug.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrDelivery wraps device open, write and playback errors.
	ErrDelivery = errors.New("delivery failed")

	ErrStreamConsumed = errors.New("tone stream already consumed")
	ErrKissProtocol   = errors.New("KISS protocol error")
)
