package sstv

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	var out bytes.Buffer
	require.NoError(t, png.Encode(&out, uniformImage(w, h, color.RGBA{R: 1, G: 2, B: 3, A: 255})))

	return out.Bytes()
}

func Test_FetchImage(t *testing.T) {
	var body = pngBytes(t, 40, 30)

	var srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cam.png" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	var img, err = FetchImage(context.Background(), srv.Client(), srv.URL+"/cam.png", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())

	_, err = FetchImage(context.Background(), srv.Client(), srv.URL+"/missing.png", time.Second)
	require.ErrorIs(t, err, ErrAcquisition)
}

func Test_FetchImage_NotAnImage(t *testing.T) {
	var srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	var _, err = FetchImage(context.Background(), nil, srv.URL, time.Second)
	require.ErrorIs(t, err, ErrAcquisition)
}

func Test_FetchImage_Timeout(t *testing.T) {
	var release = make(chan struct{})

	var srv = httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	var _, err = FetchImage(context.Background(), srv.Client(), srv.URL, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrAcquisition)
}

func Test_LoadImageFile(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 8, 8), 0o600))

	var img, err = LoadImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = LoadImageFile(filepath.Join(t.TempDir(), "nope.png"))
	require.ErrorIs(t, err, ErrAcquisition)
}
