package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger. Debug mode writes human readable lines,
// otherwise one JSON object per line.
func New(level string, debug bool) zerolog.Logger {
	var writer io.Writer
	if debug {
		writer = zerolog.ConsoleWriter{Out: os.Stdout}
	} else {
		writer = os.Stdout
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	logger := zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
