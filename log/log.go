package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// Logger is the global logger instance. It always writes to stderr, stdout
// is reserved for protocol frames.
var Logger *slog.Logger

var level = new(slog.LevelVar)

// InitLogger initializes the global logger writing to w.
// It sets the log level to Debug if STYLUSPORT_DEBUG is set
func InitLogger(w io.Writer) {
	level.Set(slog.LevelInfo)
	if os.Getenv("STYLUSPORT_DEBUG") != "" {
		level.Set(slog.LevelDebug)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// init initializes the logger when the package is imported
func init() {
	InitLogger(os.Stderr)
}

// SetLevel changes the level by name (debug, info, warn, error).
// STYLUSPORT_DEBUG keeps debug logging on regardless.
func SetLevel(name string) error {
	if os.Getenv("STYLUSPORT_DEBUG") != "" {
		return nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("unknown log level %q", name)
	}
	level.Set(l)
	return nil
}

// MaxPayloadLength caps the bytes of a frame echoed into the log.
const MaxPayloadLength = 1024

// Payload renders a raw frame for logging: control characters are escaped
// and the result is truncated to MaxPayloadLength bytes.
func Payload(b []byte) string {
	var sb strings.Builder
	truncated := false
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		var s string
		switch {
		case r == utf8.RuneError && size == 1:
			s = fmt.Sprintf(`\x%02x`, b[0])
		case r == '\n':
			s = `\n`
		case r == '\r':
			s = `\r`
		case r == '\t':
			s = `\t`
		case r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0):
			s = fmt.Sprintf(`\u%04x`, r)
		default:
			s = string(b[:size])
		}
		if sb.Len()+len(s) > MaxPayloadLength {
			truncated = true
			break
		}
		sb.WriteString(s)
		b = b[size:]
	}
	if truncated {
		sb.WriteString("...")
	}
	return sb.String()
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
