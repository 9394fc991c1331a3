package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the SSTV beacon service.
 *
 * Description:	Periodically fetches a picture, encodes it as Martin M1
 *		and sends it out through a TNC, a sound card or a file.
 *
 *		Settings come from a YAML file, if given, and command
 *		line options override individual values.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

type serviceFlags struct {
	configFile  *string
	url         *string
	device      *string
	baud        *int
	mode        *string
	source      *string
	dest        *string
	interval    *time.Duration
	logFile     *string
	logLevel    *string
	metricsAddr *string
	once        *bool
	version     *bool
	help        *bool
}

func newServiceFlags(fs *pflag.FlagSet) *serviceFlags {
	return &serviceFlags{
		configFile:  fs.StringP("config", "c", "", "YAML configuration file.  Built-in defaults if not given."),
		url:         fs.StringP("url", "u", "", "Image URL to fetch each cycle."),
		device:      fs.StringP("port", "p", "", "TNC device: serial port, tcp://host[:port], dnssd[:name], pty, or file:path."),
		baud:        fs.IntP("baud", "B", DefaultBaud, "Serial port speed."),
		mode:        fs.StringP("mode", "m", "", "Delivery mode: ax25-kiss, raw-kiss, audio, wav."),
		source:      fs.StringP("source", "s", "", "Source callsign for AX.25 framing."),
		dest:        fs.StringP("dest", "d", "", "Destination callsign for AX.25 framing."),
		interval:    fs.DurationP("interval", "i", 0, "Time between transmissions."),
		logFile:     fs.StringP("log-file", "l", "", "Log file name, strftime patterns allowed.  Empty string for stderr only."),
		logLevel:    fs.StringP("log-level", "L", "", "Log level: debug, info, warn, error."),
		metricsAddr: fs.StringP("metrics-addr", "M", "", "Serve Prometheus metrics on this address, e.g. :9100."),
		once:        fs.Bool("once", false, "Transmit one image and exit."),
		version:     fs.BoolP("version", "v", false, "Print version and exit."),
		help:        fs.BoolP("help", "h", false, "Display help text."),
	}
}

// apply overrides cfg with every option given explicitly on the command line.
func (f *serviceFlags) apply(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("url") {
		cfg.ImageURL = *f.url
	}

	if fs.Changed("port") {
		cfg.Delivery.Device = *f.device
	}

	if fs.Changed("baud") {
		cfg.Delivery.Baud = *f.baud
	}

	if fs.Changed("mode") {
		cfg.Delivery.Mode = DeliveryMode(*f.mode)
	}

	if fs.Changed("source") {
		cfg.Delivery.SourceCallsign = *f.source
	}

	if fs.Changed("dest") {
		cfg.Delivery.DestCallsign = *f.dest
	}

	if fs.Changed("interval") {
		cfg.Interval = *f.interval
	}

	if fs.Changed("log-file") {
		cfg.Log.File = *f.logFile
	}

	if fs.Changed("log-level") {
		cfg.Log.Level = *f.logLevel
	}

	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = *f.metricsAddr
	}
}

func (f *serviceFlags) load(fs *pflag.FlagSet) (*Config, error) {
	var cfg = DefaultConfig()

	if *f.configFile != "" {
		var loaded, err = LoadConfig(*f.configFile)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	f.apply(fs, cfg)

	var err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func serveMetrics(addr string, metrics *Metrics, logger *log.Logger) *http.Server {
	var mux = http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	var srv = &http.Server{ //nolint:exhaustruct
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)

		var err = srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "err", err)
		}
	}()

	return srv
}

func SSTVTxMain() {
	var fs = pflag.CommandLine
	var flags = newServiceFlags(fs)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Periodically transmit an image as Martin M1 SSTV.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Example:  %s -c /etc/sstv.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example:  %s -u https://example.com/cam.jpg -p tcp://localhost:8001 --once\n", os.Args[0])
	}

	pflag.Parse()

	if *flags.help {
		pflag.Usage()
		os.Exit(0)
	}

	if *flags.version {
		PrintVersion(false)
		os.Exit(0)
	}

	var cfg, cfgErr = flags.load(fs)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "Configuration error:\n%s\n", cfgErr)
		os.Exit(1)
	}

	var logger, logCloser, logErr = NewLogger(cfg.Log, os.Stderr)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Could not set up logging: %s\n", logErr)
		os.Exit(1)
	}

	var code = runService(cfg, *flags.once, logger)

	logCloser.Close() //nolint:errcheck,gosec
	os.Exit(code)
}

func runService(cfg *Config, once bool, logger *log.Logger) int {
	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink, sinkCloser, sinkErr = cfg.NewSink(logger)
	if sinkErr != nil {
		logger.Error("could not set up delivery", "err", sinkErr)
		return 1
	}
	defer sinkCloser.Close() //nolint:errcheck

	var metrics = NewMetrics(prometheus.NewRegistry())

	if cfg.MetricsAddr != "" {
		var srv = serveMetrics(cfg.MetricsAddr, metrics, logger.WithPrefix("metrics"))
		defer srv.Close() //nolint:errcheck
	}

	var svc, svcErr = NewService(cfg, sink, metrics, logger)
	if svcErr != nil {
		logger.Error("could not start service", "err", svcErr)
		return 1
	}

	logger.Info("starting", "mode", cfg.Delivery.Mode, "url", cfg.ImageURL, "interval", cfg.Interval)

	if once {
		var err = svc.RunCycle(ctx)
		if err != nil {
			logger.Error("transmission failed", "err", err)
			return 1
		}

		return 0
	}

	var err = svc.Run(ctx)
	if err != nil {
		logger.Error("service stopped", "err", err)
		return 1
	}

	return 0
}
