// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/emiliopalmerini/trialscope/internal/config"
)

// Setup applies cfg to the standard logger. The returned closer releases the
// log file, if any.
func Setup(cfg config.Log) (io.Closer, error) {
	return Configure(log.StandardLogger(), os.Stderr, cfg)
}

// Configure applies cfg to logger, writing to out and optionally to a
// rotating file.
func Configure(logger *log.Logger, out io.Writer, cfg config.Log) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if cfg.File == "" {
		logger.SetOutput(out)
		return nopCloser{}, nil
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	logger.SetOutput(io.MultiWriter(out, file))
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
