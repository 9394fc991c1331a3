package sstv

/*------------------------------------------------------------------
 *
 * Purpose:	Build the logger handed to every component.
 *
 * Description: Output always goes to stderr.  When a log file is
 *		configured it goes there too.  The file name may contain
 *		strftime conversions, e.g.
 *
 *			/var/log/sstv/%Y-%m-%d.log
 *
 *		for a new file each day the service is restarted.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"` // text, json or logfmt
}

func (c LogConfig) Validate() error {
	if c.Level != "" {
		var _, err = log.ParseLevel(c.Level)
		if err != nil {
			return fmt.Errorf("%w: log level %q", ErrInvalidConfiguration, c.Level)
		}
	}

	var _, err = logFormatter(c.Format)

	return err
}

func logFormatter(name string) (log.Formatter, error) {
	switch name {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("%w: log format %q", ErrInvalidConfiguration, name)
	}
}

// LogFileName expands strftime conversions in the configured path.
func LogFileName(pattern string, now time.Time) (string, error) {
	var name, err = strftime.Format(pattern, now)
	if err != nil {
		return "", fmt.Errorf("%w: log file %q: %w", ErrInvalidConfiguration, pattern, err)
	}

	return name, nil
}

// NewLogger returns the logger and something to close when the process ends.
func NewLogger(cfg LogConfig, stderr io.Writer) (*log.Logger, io.Closer, error) {
	var formatter, err = logFormatter(cfg.Format)
	if err != nil {
		return nil, nil, err
	}

	var level = log.InfoLevel
	if cfg.Level != "" {
		level, err = log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: log level %q", ErrInvalidConfiguration, cfg.Level)
		}
	}

	var out = stderr
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		var name, nameErr = LogFileName(cfg.File, time.Now())
		if nameErr != nil {
			return nil, nil, nameErr
		}

		var mkErr = os.MkdirAll(filepath.Dir(name), 0o755) //nolint:gosec
		if mkErr != nil {
			return nil, nil, fmt.Errorf("could not create log directory for %s: %w", name, mkErr)
		}

		var f, openErr = os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644) //nolint:gosec
		if openErr != nil {
			return nil, nil, fmt.Errorf("could not open log file %s: %w", name, openErr)
		}

		out = io.MultiWriter(stderr, f)
		closer = f
	}

	var logger = log.NewWithOptions(out, log.Options{ //nolint:exhaustruct
		Level:           level,
		Prefix:          "sstv",
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Formatter:       formatter,
	})

	return logger, closer, nil
}

func nopLogger() *log.Logger {
	return log.New(io.Discard)
}
