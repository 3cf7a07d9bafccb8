// Package log provides the process-wide structured logger. It wraps zerolog
// and exposes printf-style (Infof) and key/value (Infow) helpers so callers
// never deal with zerolog events directly.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	// logTestWriterName is a special output name used by tests and benchmarks
	// to redirect the logs to logTestWriter.
	logTestWriterName = "log_test_writer"
	// logTimeFormat is the time format used by the console writer.
	logTimeFormat = "2006-01-02T15:04:05.000Z07:00"
)

var (
	log      zerolog.Logger
	logLevel = LogLevelError

	// logTestWriter is the writer used when Init is called with
	// logTestWriterName as output.
	logTestWriter io.Writer = io.Discard

	// panicOnInvalidChars makes the logger panic when a message contains
	// invalid UTF-8 sequences. Useful to find binary data leaking into logs.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

func init() {
	// Allow overriding the default log level via env, so that tests and
	// commands that never call Init still log at a reasonable level.
	level := LogLevelError
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		level = l
	}
	Init(level, "stderr", nil)
}

// invalidCharChecker panics if any written log line carries the replacement
// character zerolog emits for invalid UTF-8.
type invalidCharChecker struct{}

func (*invalidCharChecker) Write(p []byte) (int, error) {
	if bytes.ContainsRune(p, utf8.RuneError) {
		panic(fmt.Sprintf("log line contains invalid characters: %q", p))
	}
	return len(p), nil
}

// errorLevelWriter forwards only error (and above) events to the wrapped
// writer.
type errorLevelWriter struct {
	io.Writer
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel {
		return len(p), nil
	}
	return w.Write(p)
}

// Init initializes the logger. Output can be "stdout", "stderr", a file path
// or the internal test writer name. If errorOutput is not nil, error level
// logs are also written there.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: logTimeFormat}
	case "stderr":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: logTimeFormat}
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		out = f
	}
	writers := []io.Writer{out}
	if errorOutput != nil {
		writers = append(writers, &errorLevelWriter{errorOutput})
	}
	if panicOnInvalidChars {
		writers = append(writers, &invalidCharChecker{})
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(file)), path.Base(file), line)
	}
	log = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().CallerWithSkipFrameCount(3).Logger()

	switch strings.ToLower(level) {
	case LogLevelDebug:
		log = log.Level(zerolog.DebugLevel)
	case LogLevelInfo:
		log = log.Level(zerolog.InfoLevel)
	case LogLevelWarn:
		log = log.Level(zerolog.WarnLevel)
	case LogLevelError:
		log = log.Level(zerolog.ErrorLevel)
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
	logLevel = strings.ToLower(level)
	log.Info().Msgf("logger construction succeeded at level %s with output %s", level, output)
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

// Level returns the current log level.
func Level() string {
	return logLevel
}

// Debug sends a debug level log message.
func Debug(args ...any) {
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}
	log.Debug().Msg(fmt.Sprint(args...))
}

// Info sends an info level log message.
func Info(args ...any) {
	log.Info().Msg(fmt.Sprint(args...))
}

// Warn sends a warn level log message.
func Warn(args ...any) {
	log.Warn().Msg(fmt.Sprint(args...))
}

// Error sends an error level log message.
func Error(args ...any) {
	log.Error().Msg(fmt.Sprint(args...))
}

// Fatal sends a fatal level log message and exits the process.
func Fatal(args ...any) {
	log.Fatal().Msg(fmt.Sprint(args...) + "\n" + string(debug.Stack()))
}

// Debugf sends a formatted debug level log message.
func Debugf(template string, args ...any) {
	log.Debug().Msgf(template, args...)
}

// Infof sends a formatted info level log message.
func Infof(template string, args ...any) {
	log.Info().Msgf(template, args...)
}

// Warnf sends a formatted warn level log message.
func Warnf(template string, args ...any) {
	log.Warn().Msgf(template, args...)
}

// Errorf sends a formatted error level log message.
func Errorf(template string, args ...any) {
	log.Error().Msgf(template, args...)
}

// Fatalf sends a formatted fatal level log message and exits the process.
func Fatalf(template string, args ...any) {
	Fatal(fmt.Sprintf(template, args...))
}

// Debugw sends a debug level log message with key-value pairs.
func Debugw(msg string, keyvalues ...any) {
	log.Debug().Fields(keyvalues).Msg(msg)
}

// Infow sends an info level log message with key-value pairs.
func Infow(msg string, keyvalues ...any) {
	log.Info().Fields(keyvalues).Msg(msg)
}

// Warnw sends a warning level log message with key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	log.Warn().Fields(keyvalues).Msg(msg)
}

// Errorw sends an error level log message with a special format for errors.
func Errorw(err error, msg string) {
	log.Error().Err(err).Msg(msg)
}
