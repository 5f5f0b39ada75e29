package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the global logger.
type Options struct {
	// Level is debug, info, warn or error (default info).
	Level string
	// Format is console (default) or json.
	Format string
	// File, when set, additionally writes JSON logs to a rotated file.
	File string
	// Out is the primary destination (default os.Stderr).
	Out io.Writer
}

// Init configures the global zerolog logger. The returned closer releases
// the log file, if any.
func Init(opts Options) io.Closer {
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !strings.EqualFold(opts.Format, "json") {
		out = zerolog.ConsoleWriter{Out: out}
	}

	var closer io.Closer = nopCloser{}
	if path := strings.TrimSpace(opts.File); path != "" {
		rotated := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, rotated)
		closer = rotated
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
