package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string `yaml:"level"`
	TimeFormat string `yaml:"time_format"`
	Pretty     bool   `yaml:"pretty"`

	// Output defaults to stderr so command output on stdout stays parseable.
	Output io.Writer `yaml:"-"`
}

func New() zerolog.Logger {
	return NewWithConfig(Config{
		Level:      "info",
		TimeFormat: time.RFC3339,
	})
}

func NewWithConfig(config Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	var logger zerolog.Logger
	if config.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				s, _ := i.(string)
				return colorizeLevel(s)
			},
		})
	} else {
		logger = zerolog.New(out)
	}

	return logger.Level(level).With().
		Timestamp().
		Str("service", "xscan").
		Logger()
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func colorizeLevel(level string) string {
	switch level {
	case "trace":
		return "\033[35m" + level + "\033[0m"
	case "debug":
		return "\033[36m" + level + "\033[0m"
	case "info":
		return "\033[32m" + level + "\033[0m"
	case "warn":
		return "\033[33m" + level + "\033[0m"
	case "error":
		return "\033[31m" + level + "\033[0m"
	case "fatal", "panic":
		return "\033[91m" + level + "\033[0m"
	default:
		return level
	}
}
