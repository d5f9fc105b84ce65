package cmd

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// zerologAdapter implements bridge.Logger on top of zerolog.
type zerologAdapter struct {
	logger zerolog.Logger
}

func newLogger(w io.Writer, level string) (*zerologAdapter, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(lvl).
		With().Timestamp().Logger()
	return &zerologAdapter{logger: logger}, nil
}

func (l *zerologAdapter) Info(msg string, args ...any)  { l.logger.Info().Fields(args).Msg(msg) }
func (l *zerologAdapter) Error(msg string, args ...any) { l.logger.Error().Fields(args).Msg(msg) }
func (l *zerologAdapter) Warn(msg string, args ...any)  { l.logger.Warn().Fields(args).Msg(msg) }
func (l *zerologAdapter) Debug(msg string, args ...any) { l.logger.Debug().Fields(args).Msg(msg) }
