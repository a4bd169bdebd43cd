// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

// Logger writes key/value structured records.
type Logger interface {
	With(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

type logger struct {
	inner *slog.Logger
}

func (l *logger) With(ctx ...any) Logger       { return &logger{l.inner.With(ctx...)} }
func (l *logger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }

var rootHandler atomic.Pointer[slog.Handler]

func init() {
	h := DiscardHandler()
	rootHandler.Store(&h)
}

// SetRootHandler replaces the handler backing all loggers created by this
// package, including loggers obtained before the call.
func SetRootHandler(h slog.Handler) {
	rootHandler.Store(&h)
}

// WithContext returns a logger carrying the given context pairs.
func WithContext(ctx ...any) Logger {
	l := &logger{slog.New(forwardHandler{})}
	return l.With(ctx...)
}

// forwardHandler resolves the installed root handler per record, so
// package-level loggers follow a handler swap at startup.
type forwardHandler struct {
	attrs  []slog.Attr
	groups []string
}

func (f forwardHandler) current() slog.Handler {
	h := *rootHandler.Load()
	for _, g := range f.groups {
		h = h.WithGroup(g)
	}
	if len(f.attrs) > 0 {
		h = h.WithAttrs(f.attrs)
	}
	return h
}

func (f forwardHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return (*rootHandler.Load()).Enabled(ctx, lvl)
}

func (f forwardHandler) Handle(ctx context.Context, r slog.Record) error {
	return f.current().Handle(ctx, r)
}

func (f forwardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(f.attrs[:len(f.attrs):len(f.attrs)], attrs...)
	return forwardHandler{attrs: merged, groups: f.groups}
}

func (f forwardHandler) WithGroup(name string) slog.Handler {
	groups := append(f.groups[:len(f.groups):len(f.groups)], name)
	return forwardHandler{attrs: f.attrs, groups: groups}
}

// NewTextHandler creates a logfmt-style handler writing to wr.
func NewTextHandler(wr io.Writer, lvl slog.Leveler) slog.Handler {
	return slog.NewTextHandler(wr, &slog.HandlerOptions{Level: lvl})
}

// NewJSONHandler creates a JSON handler writing to wr.
func NewJSONHandler(wr io.Writer, lvl slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{Level: lvl})
}

// DiscardHandler returns a no-op handler.
func DiscardHandler() slog.Handler {
	return discardHandler{}
}

type discardHandler struct{}

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

// LevelFromVerbosity maps legacy numeric verbosity (0=error .. 3+=debug) to slog levels.
func LevelFromVerbosity(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
