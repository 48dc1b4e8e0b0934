package logger

import (
	"io"
	"log"
	"os"
)

// Logger wraps the standard logger with level prefixes and a debug gate.
type Logger struct {
	debug bool
	*log.Logger
}

func New(debug bool) *Logger {
	return NewWithWriter(debug, os.Stderr)
}

func NewWithWriter(debug bool, w io.Writer) *Logger {
	return &Logger{
		debug:  debug,
		Logger: log.New(w, "", log.LstdFlags),
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWithWriter(false, io.Discard)
}

func (l *Logger) Infof(format string, v ...any) {
	l.Logger.Printf("[INFO] "+format, v...)
}

func (l *Logger) Warnf(format string, v ...any) {
	l.Logger.Printf("[WARN] "+format, v...)
}

func (l *Logger) Errorf(format string, v ...any) {
	l.Logger.Printf("[ERROR] "+format, v...)
}

// Debugf logs only when debug is enabled.
func (l *Logger) Debugf(format string, v ...any) {
	if l.debug {
		l.Logger.Printf("[DEBUG] "+format, v...)
	}
}

func (l *Logger) Fatalf(format string, v ...any) {
	l.Logger.Fatalf("[FATAL] "+format, v...)
}
