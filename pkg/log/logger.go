package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	gainerrors "github.com/kiw9761/GAIN/pkg/errors"
)

var (
	mu            sync.RWMutex
	defaultLogger Logger = NewZerologLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
)

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// SetLogger replaces the process-wide logger.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// Setup configures the global zerolog level and output format ("json" or
// "pretty"), installs the result as the process-wide logger and routes
// library warnings into it.
func Setup(level, format string, out io.Writer) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return gainerrors.NewValidationError("log-level", "unknown level", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if out == nil {
		out = os.Stderr
	}
	switch format {
	case "json", "":
	case "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return gainerrors.NewValidationError("log-format", "must be json or pretty", format)
	}

	zl := zerolog.New(out).With().Timestamp().Logger()
	SetLogger(NewZerologLogger(zl))
	gainerrors.SetZerologWarnFunc(func(w error) {
		e := zl.Warn()
		if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
			e = e.EmbedObject(obj)
		}
		e.Msg(w.Error())
	})
	return nil
}
