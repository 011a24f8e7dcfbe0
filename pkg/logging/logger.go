package logging

import (
	"io"
	"log/slog"
)

type Logger interface {
	Info(message string, module string)
	Error(string)
}

// SlogLogger sends info messages and errors to separate slog loggers.
type SlogLogger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func (l SlogLogger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l SlogLogger) Error(message string) {
	l.ErrorLog.Error(message)
}

// New returns the logger used by the executables: bracketed text for info
// messages and JSON lines for errors.
func New(infoOut io.Writer, errOut io.Writer, level slog.Level) SlogLogger {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	return SlogLogger{
		InfoLog:  slog.New(NewHandler(infoOut, opts)),
		ErrorLog: slog.New(slog.NewJSONHandler(errOut, opts)),
	}
}

type Nop struct{}

func (Nop) Info(string, string) {}
func (Nop) Error(string)        {}
