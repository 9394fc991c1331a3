package sstv

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	buffers []*SampleBuffer
	err     error
}

func (s *recordingSink) Name() string {
	return "recording"
}

func (s *recordingSink) Transmit(buf *SampleBuffer) (TransmitStats, error) {
	s.buffers = append(s.buffers, buf)
	if s.err != nil {
		return TransmitStats{}, s.err //nolint:exhaustruct
	}

	return TransmitStats{Frames: 3, PayloadLen: buf.Len() * 2, WireLen: buf.Len()*2 + 60}, nil
}

func testServiceConfig() *Config {
	var cfg = DefaultConfig()
	cfg.Encoder.SampleRate = 8000
	cfg.Fetch.RetryDelay = 0
	cfg.Log.File = ""

	return cfg
}

func newTestService(t *testing.T, sink Sink, fetch ImageFetcher) (*Service, *Metrics) {
	t.Helper()

	var metrics = NewMetrics(prometheus.NewRegistry())

	var svc, err = NewService(testServiceConfig(), sink, metrics, nopLogger())
	require.NoError(t, err)

	svc.fetch = fetch

	return svc, metrics
}

func fixedImage(ctx context.Context) (image.Image, error) {
	return uniformImage(16, 16, color.Gray{Y: 200}), nil
}

func Test_Service_RunCycle(t *testing.T) {
	var sink recordingSink
	var svc, metrics = newTestService(t, &sink, fixedImage)

	require.NoError(t, svc.RunCycle(context.Background()))

	require.Len(t, sink.buffers, 1)

	var buf = sink.buffers[0]
	assert.Equal(t, 8000, buf.SampleRateHz)
	assert.Equal(t, 16, buf.BitsPerSample)

	var at = func(ms float64) int { return SamplesFor(ms, 8000) }
	var lines = MartinM1Height * 3
	var fskidBits = (len("RPI_SSTV") + 3) * fskidBitsPerChar

	var want = 8*at(MsecVOXTone) +
		2*at(MsecVISStart) + at(MsecVISSync) + 10*at(MsecVISBit) +
		(lines+1)*(at(MartinM1SyncMs)+at(MartinM1SeparatorMs)) +
		lines*MartinM1Width*at(MartinM1PixelMs) +
		fskidBits*at(MsecFSKIDBit)
	assert.Equal(t, want, buf.Len())

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.cycles.WithLabelValues(cycleResultOK)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.framesSent), 0)
	assert.InDelta(t, float64(buf.Len()), testutil.ToFloat64(metrics.samples), 0)
	assert.Positive(t, testutil.ToFloat64(metrics.lastSuccessTime))
}

func Test_Service_FetchRetry(t *testing.T) {
	var calls = 0
	var sink recordingSink

	var svc, _ = newTestService(t, &sink, func(ctx context.Context) (image.Image, error) {
		calls++
		if calls < 3 {
			return nil, ErrAcquisition
		}

		return fixedImage(ctx)
	})

	require.NoError(t, svc.RunCycle(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Len(t, sink.buffers, 1)
}

func Test_Service_FetchGivesUp(t *testing.T) {
	var calls = 0
	var sink recordingSink

	var svc, metrics = newTestService(t, &sink, func(context.Context) (image.Image, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	var err = svc.RunCycle(context.Background())
	require.ErrorIs(t, err, ErrAcquisition)
	assert.Equal(t, 3, calls)
	assert.Empty(t, sink.buffers, "nothing is transmitted without an image")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.cycles.WithLabelValues(cycleResultAcquisition)), 0)
}

func Test_Service_DeliveryError(t *testing.T) {
	var sink = recordingSink{err: ErrDelivery} //nolint:exhaustruct
	var svc, metrics = newTestService(t, &sink, fixedImage)

	var err = svc.RunCycle(context.Background())
	require.ErrorIs(t, err, ErrDelivery)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.cycles.WithLabelValues(cycleResultDelivery)), 0)
}

func Test_Service_Run(t *testing.T) {
	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var fail = false
	var sink recordingSink

	var svc, _ = newTestService(t, &sink, func(ctx context.Context) (image.Image, error) {
		if fail {
			return nil, ErrAcquisition
		}

		return fixedImage(ctx)
	})

	var waits []time.Duration

	svc.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		fail = !fail

		if len(waits) == 3 {
			cancel()
			return ctx.Err()
		}

		return nil
	}

	require.NoError(t, svc.Run(ctx))

	assert.Equal(t, []time.Duration{300 * time.Second, 60 * time.Second, 300 * time.Second}, waits)
	assert.Len(t, sink.buffers, 2)
}

func Test_Service_InvalidConfig(t *testing.T) {
	var cfg = testServiceConfig()
	cfg.Encoder.BitsPerSample = 24

	var _, err = NewService(cfg, &recordingSink{}, nil, nopLogger()) //nolint:exhaustruct
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func Test_sleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
