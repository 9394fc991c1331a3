package sstv

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"os"
	"time"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// Upper bound on an image body, well beyond anything worth scaling to 320x256.
const maxImageBytes = 32 << 20

/*-------------------------------------------------------------------
 *
 * Name:	FetchImage
 *
 * Purpose:	Download and decode the source picture.
 *
 * Inputs:	client	- nil means http.DefaultClient.
 *		url	- Anything image.Decode knows: JPEG, PNG, GIF,
 *			  BMP or WebP.
 *		timeout	- Applies to the whole request including the body.
 *
 * Errors:	Everything wraps ErrAcquisition.
 *
 *---------------------------------------------------------------*/

func FetchImage(ctx context.Context, client *http.Client, url string, timeout time.Duration) (image.Image, error) {
	if client == nil {
		client = http.DefaultClient
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)

		defer cancel()
	}

	var req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}

	var resp, doErr = client.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, doErr)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: %s", ErrAcquisition, url, resp.Status)
	}

	return decodeImage(io.LimitReader(resp.Body, maxImageBytes))
}

// LoadImageFile decodes a picture from disk.
func LoadImageFile(path string) (image.Image, error) {
	var f, err = os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	defer f.Close() //nolint:errcheck

	return decodeImage(f)
}

func decodeImage(r io.Reader) (image.Image, error) {
	var img, format, err = image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrAcquisition, err)
	}

	var b = img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrAcquisition, format)
	}

	return img, nil
}
