package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	The periodic fetch, encode, transmit loop.
 *
 * Description:	Each cycle:
 *
 *		1. Fetch the picture, retrying a few times.
 *		2. Scale it to 320x256 and build the Martin M1 tone sequence.
 *		3. Synthesize samples.
 *		4. Hand them to the configured sink.
 *
 *		Then sleep for the interval, or the shorter error sleep
 *		if anything failed.  Cancelling the context stops the loop
 *		between cycles.  A cycle in progress runs to completion.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	cycleResultOK          = "ok"
	cycleResultAcquisition = "acquisition"
	cycleResultSynthesis   = "synthesis"
	cycleResultDelivery    = "delivery"
)

type ImageFetcher func(ctx context.Context) (image.Image, error)

type Service struct {
	cfg     *Config
	sink    Sink
	synth   *Synthesizer
	metrics *Metrics
	logger  *log.Logger

	fetch ImageFetcher
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService fetches from cfg.ImageURL.  metrics may be nil.
func NewService(cfg *Config, sink Sink, metrics *Metrics, logger *log.Logger) (*Service, error) {
	var err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	var synth, synthErr = NewSynthesizer(cfg.SynthConfig(), logger.WithPrefix("synth"))
	if synthErr != nil {
		return nil, synthErr
	}

	var s = &Service{
		cfg:     cfg,
		sink:    sink,
		synth:   synth,
		metrics: metrics,
		logger:  logger,
		fetch:   nil,
		sleep:   sleepContext,
	}

	s.fetch = func(ctx context.Context) (image.Image, error) {
		return FetchImage(ctx, nil, cfg.ImageURL, cfg.Fetch.Timeout)
	}

	return s, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	var t = time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cycleResult(err error) string {
	switch {
	case err == nil:
		return cycleResultOK
	case errors.Is(err, ErrAcquisition):
		return cycleResultAcquisition
	case errors.Is(err, ErrDelivery):
		return cycleResultDelivery
	default:
		return cycleResultSynthesis
	}
}

func (s *Service) acquire(ctx context.Context, logger *log.Logger) (image.Image, error) {
	var img image.Image

	var attempt = 0

	var op = func() error {
		attempt++

		var fetched, err = s.fetch(ctx)
		if err != nil {
			return err
		}

		img = fetched

		return nil
	}

	var policy = backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.Fetch.RetryDelay), uint64(s.cfg.Fetch.Attempts-1)), //nolint:gosec
		ctx,
	)

	var err = backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		logger.Warn("image fetch failed, will retry", "attempt", attempt, "of", s.cfg.Fetch.Attempts, "in", next, "err", err)
	})
	if err != nil {
		if !errors.Is(err, ErrAcquisition) {
			err = fmt.Errorf("%w: %w", ErrAcquisition, err)
		}

		return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
	}

	return img, nil
}

// RunCycle performs one complete transmission.
func (s *Service) RunCycle(ctx context.Context) (err error) {
	var logger = s.logger.With("cycle", uuid.NewString())
	var start = time.Now()

	defer func() {
		var result = cycleResult(err)
		s.metrics.observeCycle(result, s.sink.Name(), time.Since(start))

		if err == nil {
			logger.Info("cycle complete", "elapsed", time.Since(start).Round(time.Millisecond))
		}
	}()

	logger.Info("fetching image", "url", s.cfg.ImageURL)

	var img, fetchErr = s.acquire(ctx, logger)
	if fetchErr != nil {
		return fetchErr
	}

	var mode, modeErr = NewMartinM1(img)
	if modeErr != nil {
		return modeErr
	}

	var tones, tonesErr = mode.Tones(s.cfg.ToneOptions())
	if tonesErr != nil {
		return tonesErr
	}

	var buf, synthErr = s.synth.Synthesize(tones)
	if synthErr != nil {
		return synthErr
	}

	logger.Info("transmitting", "sink", s.sink.Name(), "duration", buf.Duration().Round(time.Millisecond))

	var stats, txErr = s.sink.Transmit(buf)

	s.metrics.observeTransmit(stats, buf.Len())

	if txErr != nil {
		return txErr
	}

	logger.Info("transmission sent", "frames", stats.Frames, "bytes", stats.WireLen)

	return nil
}

// Run repeats RunCycle until ctx is cancelled.  Cycle errors are logged, not returned.
func (s *Service) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil //nolint:nilerr
		}

		var wait = s.cfg.Interval

		var err = s.RunCycle(ctx)
		if err != nil {
			s.logger.Error("cycle failed", "err", err, "retry_in", s.cfg.ErrorSleep)
			wait = s.cfg.ErrorSleep
		} else {
			s.logger.Info("sleeping", "for", wait)
		}

		if s.sleep(ctx, wait) != nil {
			s.logger.Info("stopping")

			return nil
		}
	}
}
