package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog.Logger from the Config's LogLevel/LogFormat,
// the same two knobs the teacher's Config exposed for its own stdlib
// log.Printf output — here they actually select the sink's behavior.
func NewLogger(cfg *Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var writer zerolog.ConsoleWriter
	var logger zerolog.Logger
	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		logger = zerolog.New(os.Stdout)
	default:
		writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		logger = zerolog.New(writer)
	}

	return logger.Level(level).With().Timestamp().Logger(), nil
}
