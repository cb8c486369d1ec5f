package logs

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vidfetch/api/internal/config"
)

// Rotation settings for LOG_FILE
const (
	fileMaxSizeMB  = 50
	fileMaxBackups = 3
	fileMaxAgeDays = 7
)

// Setup configures the global zerolog logger and returns it.
func Setup(c config.LogConfig, service string) zerolog.Logger {
	return setup(c, service, os.Stdout)
}

func setup(c config.LogConfig, service string, stdout io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer
	if c.Format == "console" {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		writers = append(writers, stdout)
	}
	if c.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			MaxAge:     fileMaxAgeDays,
			Compress:   true,
		})
	}

	logger := zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().
		Timestamp().
		Str("svc", service).
		Logger()

	log.Logger = logger
	return logger
}
