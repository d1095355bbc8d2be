// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

// Package log provides the leveled, structured logging every other
// package in this module calls through: key-value context pairs
// rather than formatted strings, and a Crit level that logs and then
// terminates the process, the mechanism behind this module's "abort"
// fatal conditions (pile file shrinkage, refcount overflow,
// allocation failure, a nil id where one must be non-nil).
package log

import (
	"context"
	"os"

	"golang.org/x/exp/slog"
)

// Level mirrors go-ethereum's log levels, most severe first, with
// Trace as the most verbose rather than slog's default ordering.
type Level int

const (
	LevelCrit Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelCrit, LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelInfo:
		return slog.LevelInfo
	case LevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelDebug - 4
	}
}

// Logger is a thin wrapper over slog.Logger adding the Crit level and
// this module's key-value call convention.
type Logger struct {
	inner *slog.Logger
}

// New returns a Logger over the default handler with ctx as its
// base key-value pairs.
func New(ctx ...any) Logger {
	return Logger{inner: slog.Default().With(ctx...)}
}

// NewWithHandler returns a Logger writing through h.
func NewWithHandler(h slog.Handler) Logger {
	return Logger{inner: slog.New(h)}
}

func (l Logger) log(lvl Level, msg string, ctx ...any) {
	l.inner.Log(context.Background(), lvl.slogLevel(), msg, ctx...)
}

func (l Logger) Trace(msg string, ctx ...any) { l.log(LevelTrace, msg, ctx...) }
func (l Logger) Debug(msg string, ctx ...any) { l.log(LevelDebug, msg, ctx...) }
func (l Logger) Info(msg string, ctx ...any)  { l.log(LevelInfo, msg, ctx...) }
func (l Logger) Warn(msg string, ctx ...any)  { l.log(LevelWarn, msg, ctx...) }
func (l Logger) Error(msg string, ctx ...any) { l.log(LevelError, msg, ctx...) }

// Crit logs at error level and then terminates the process. It is the
// mechanism behind every "abort" fatal condition this module
// documents: it is not a recoverable error path.
func (l Logger) Crit(msg string, ctx ...any) {
	l.log(LevelCrit, msg, ctx...)
	os.Exit(1)
}

// With returns a Logger that prepends ctx to every subsequent call's
// key-value pairs.
func (l Logger) With(ctx ...any) Logger {
	return Logger{inner: l.inner.With(ctx...)}
}

var root = New()

// Root returns the package-wide default Logger.
func Root() Logger { return root }

// SetDefault replaces the package-wide default Logger, e.g. to attach
// a rotating file handler for a long-running CLI invocation.
func SetDefault(l Logger) { root = l }

func Trace(msg string, ctx ...any) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { root.Crit(msg, ctx...) }
