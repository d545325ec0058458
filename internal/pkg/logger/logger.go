// Package logger configures the process wide zerolog logger and hands out
// component scoped children of it.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a configured level name
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// ParseLevel maps a configured level name onto a LogLevel, defaulting to info
func ParseLevel(level string) LogLevel {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(level))); l {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return l
	default:
		return InfoLevel
	}
}

// Config represents logger configuration
type Config struct {
	Level LogLevel
	// Pretty switches from JSON lines to the human readable console format
	Pretty bool
	// Output defaults to os.Stdout
	Output io.Writer
}

// Configure replaces the global logger
func Configure(config Config) {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	level, err := zerolog.ParseLevel(string(ParseLevel(string(config.Level))))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := config.Output
	if config.Pretty {
		writer = zerolog.ConsoleWriter{Out: config.Output, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}

func Debug() *zerolog.Event { return log.Logger.Debug() }

func Info() *zerolog.Event { return log.Logger.Info() }

func Warn() *zerolog.Event { return log.Logger.Warn() }

func Error() *zerolog.Event { return log.Logger.Error() }

// Component returns a child logger tagged with the component name
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

func init() {
	Configure(Config{Level: InfoLevel, Pretty: true})
}
