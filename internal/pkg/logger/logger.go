package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"pubhook/internal/platform/config"
)

const serviceName = "pubhook"

// ParseLevel maps a configured level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Init(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	log.Logger = New(cfg, os.Stdout)
}

// New builds the service logger. Output falls back to stdout when the log file
// cannot be opened.
func New(cfg config.LoggingConfig, stdout io.Writer) zerolog.Logger {
	var out io.Writer = stdout

	if cfg.Output == "file" && cfg.FilePath != "" {
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.FilePath).Msg("failed to open log file")
		} else {
			return zerolog.New(file).With().Timestamp().Str("service", serviceName).Logger()
		}
	}

	if cfg.Format == "text" {
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).With().Timestamp().Str("service", serviceName).Logger()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
}
