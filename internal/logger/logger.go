package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl zerolog.Logger
}

func New() *Logger {
	return NewWithWriter(os.Stdout)
}

func NewWithWriter(writer io.Writer) *Logger {
	zl := zerolog.New(writer).With().
		Str("service", "followup-tracker").
		Timestamp().
		Logger()
	return &Logger{zl: zl}
}

// SetLevel accepts zerolog level names; unknown names leave the level unchanged.
func (l *Logger) SetLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return
	}
	l.zl = l.zl.Level(parsed)
}

// With returns a child logger carrying an extra field.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func line(v ...interface{}) string {
	return strings.TrimSuffix(fmt.Sprintln(v...), "\n")
}

func (l *Logger) Debug(v ...interface{}) {
	l.zl.Debug().Msg(line(v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

func (l *Logger) Info(v ...interface{}) {
	l.zl.Info().Msg(line(v...))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.zl.Warn().Msg(line(v...))
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.zl.Error().Msg(line(v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}
