// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
)

// messager describes an error that can report its own message without the chain.
// This matches the Message() method provided by zerr.Error.
type messager interface {
	Message() string
}

// Logger implements ports.Logger using log/slog. The configured verbosity
// gates emission only; it has no behavioral effect on the engine.
type Logger struct {
	mu     sync.RWMutex
	logger *slog.Logger
	level  *slog.LevelVar
}

// New creates a new Logger writing to stderr at warning verbosity.
func New() *Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	handler := NewPrettyHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{
		logger: slog.New(handler),
		level:  level,
	}
}

// SetVerbosity maps the configured verbosity onto slog levels.
// Unknown values fall back to warning.
func (l *Logger) SetVerbosity(v domain.Verbosity) {
	switch v {
	case domain.VerbosityVerbose:
		l.level.Set(slog.LevelDebug)
	case domain.VerbosityInfo:
		l.level.Set(slog.LevelInfo)
	default:
		l.level.Set(slog.LevelWarn)
	}
}

// SetOutput updates the logger's output destination. Used for testing.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	l.logger = slog.New(NewPrettyHandler(w, &slog.HandlerOptions{Level: l.level}))
}

// Debug logs a verbose diagnostic message.
func (l *Logger) Debug(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Debug(msg)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs an error, flattening a zerr chain into one readable message.
func (l *Logger) Error(err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err == nil {
		return
	}

	var messages []string
	current := err
	for current != nil {
		if m, ok := current.(messager); ok {
			messages = append(messages, m.Message())
			current = errors.Unwrap(current)
		} else {
			messages = append(messages, current.Error())
			break
		}
	}

	l.logger.Error(strings.Join(messages, ": "))
}

var _ ports.Logger = (*Logger)(nil)
