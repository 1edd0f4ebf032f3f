// Copyright 2024 The Ragdeploy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging is a small structured logging layer over [log/slog] that
// emits records in the shape Google Cloud Logging expects.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
)

// contextKey is a private string type to prevent collisions in the context map.
type contextKey string

// loggerKey points to the value in the context where the logger is stored.
const loggerKey = contextKey("logger")

var defaultLoggerOnce = sync.OnceValue(func() *slog.Logger {
	l, err := New(os.Stderr, "warning", "text", false)
	if err != nil {
		panic(fmt.Errorf("failed to create logger: %w", err))
	}
	return l
})

// New creates a new logger that writes to w at the provided level in the
// provided format ("json" or "text").
//
// If debug is true, the level is forced to the lowest possible value and
// source information is added to every record.
func New(w io.Writer, logLevel, logFormat string, debug bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		ReplaceAttr: cloudLoggingAttrsEncoder(),
	}

	level, err := LookupLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q for log level: %w", logLevel, err)
	}

	format, err := LookupFormat(logFormat)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q for log format: %w", logFormat, err)
	}

	if debug {
		opts.AddSource = true
		level = math.MinInt
	}

	switch format {
	case FormatJSON:
		return slog.New(NewLevelHandler(level, slog.NewJSONHandler(w, opts))), nil
	case FormatText:
		return slog.New(NewLevelHandler(level, slog.NewTextHandler(w, opts))), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// SetLevel adjusts the level on the provided logger. The handler on the given
// logger must be a [LevelableHandler] or else this function panics. Loggers
// created through this package always satisfy that interface.
func SetLevel(logger *slog.Logger, level slog.Level) *slog.Logger {
	if typ, ok := logger.Handler().(LevelableHandler); ok {
		typ.SetLevel(level)
		return logger
	}

	panic("handler is not capable of setting levels")
}

// WithLogger creates a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in the context. If no such logger
// exists, a default logger is returned.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}

	return defaultLoggerOnce()
}

// cloudLoggingAttrsEncoder renames the [slog.Record] attributes to match the
// special payload fields Google Cloud Logging understands.
func cloudLoggingAttrsEncoder() func([]string, slog.Attr) slog.Attr {
	const (
		keyMessage = "message"
		keySource  = "logging.googleapis.com/sourceLocation"
	)

	return func(groups []string, a slog.Attr) slog.Attr {
		// Cloud Logging uses "severity" instead of "level", with its own
		// severity names.
		if a.Key == slog.LevelKey {
			a.Key = "severity"

			val := a.Value.Any()
			typ, ok := val.(slog.Level)
			if !ok {
				panic(fmt.Sprintf("level is not slog.Level (got %T)", val))
			}
			a.Value = LevelSlogValue(typ)
		}

		if a.Key == slog.MessageKey {
			a.Key = keyMessage
		}

		if a.Key == slog.SourceKey {
			a.Key = keySource
		}

		return a
	}
}
