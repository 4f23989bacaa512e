package logger

import (
	"os"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// LogMessages writes esbuild diagnostics to logger at the given level, one
// event per message with its source location when known.
func LogMessages(logger zerolog.Logger, level zerolog.Level, msgs []api.Message) {
	for _, msg := range msgs {
		ev := logger.WithLevel(level).Str("plugin", msg.PluginName)

		if msg.Location != nil {
			ev = ev.
				Str("file", msg.Location.File).
				Int("line", msg.Location.Line).
				Int("column", msg.Location.Column)
		}

		if len(msg.Notes) > 0 {
			notes := make([]string, 0, len(msg.Notes))
			for _, note := range msg.Notes {
				notes = append(notes, note.Text)
			}
			ev = ev.Strs("notes", notes)
		}

		ev.Msg(msg.Text)
	}
}
