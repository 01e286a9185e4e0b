package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Setup configures the global zerolog logger.
// format is "console", "json" or "auto" (console when stderr is a terminal).
func Setup(level, format string) {
	SetupWriter(os.Stderr, level, format, term.IsTerminal(int(os.Stderr.Fd())))
}

// SetupWriter is Setup with an explicit destination and terminal flag.
func SetupWriter(w io.Writer, level, format string, isTerminal bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(level))

	console := format == "console" || (format == "auto" && isTerminal)
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
