// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpuflow

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for gpuflow and all its sub-packages.
// By default, gpuflow produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used by gpuflow:
//   - [slog.LevelDebug]: buffer sizes, bindings, uploads, dispatch sizes
//   - [slog.LevelInfo]: created pipelines, meshes and textures, device selection
//   - [slog.LevelWarn]: non-fatal issues (resource release errors)
//
// Example:
//
//	gpuflow.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by gpuflow.
// Sub-packages call this to share one logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// StepLogger returns the current logger annotated with a step's plugin id
// and definition id.
func StepLogger(pluginID, stepID string) *slog.Logger {
	return Logger().With(slog.String("plugin", pluginID), slog.String("step", stepID))
}
