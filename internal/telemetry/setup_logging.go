// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry sets up structured logging and OpenTelemetry. This file
// configures logging. Logs are JSON lines using the Cloud Logging field names
// so they can be shipped as is:
//   - `severity`, `timestamp` and `message` replace the slog keys, and WARN is
//     spelled WARNING;
//   - records logged with a context carrying a valid span get the
//     `logging.googleapis.com/trace`, `spanId` and `trace_sampled` fields, so
//     Cloud Logging groups them under the request trace;
//   - every record is also handed to the OpenTelemetry log bridge.
package telemetry

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/trace"
)

// spanContextLogHandler adds the trace context of each record to its
// attributes.
type spanContextLogHandler struct {
	slog.Handler
}

// handlerWithSpanContext wraps handler. Derived handlers are wrapped again so
// loggers built with With or WithGroup keep the trace fields.
func handlerWithSpanContext(handler slog.Handler) *spanContextLogHandler {
	return &spanContextLogHandler{Handler: handler}
}

// Handle uses the special fields Cloud Logging correlates with Cloud Trace.
// See https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
func (t *spanContextLogHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any("logging.googleapis.com/trace", s.TraceID()),
			slog.Any("logging.googleapis.com/spanId", s.SpanID()),
			slog.Bool("logging.googleapis.com/trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return t.Handler.Handle(ctx, record)
}

func (t *spanContextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithAttrs(attrs))
}

func (t *spanContextLogHandler) WithGroup(name string) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithGroup(name))
}

// replacer renames the slog keys to severity, timestamp and message.
func replacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		// https://cloud.google.com/logging/docs/reference/v2/rest/v2/LogEntry#LogSeverity
		if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// NewLogHandler returns the JSON handler used by SetupLogging, writing to w
// the records at level and above. The CLI uses it on stderr so its command
// output stays clean.
func NewLogHandler(w io.Writer, level slog.Level) slog.Handler {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{ReplaceAttr: replacer, Level: level})
	return handlerWithSpanContext(jsonHandler)
}

// fanoutHandler sends every record to each of its handlers. It is enabled
// for a level when any of them is, and joins the errors of the handlers
// that failed.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var err error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			err = errors.Join(err, h.Handle(ctx, record.Clone()))
		}
	}
	return err
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// SetupLogging makes slog and the standard logger write JSON to stdout and,
// when logFile is not empty, to that file too. Records are also handed to the
// OpenTelemetry log bridge under name, which forwards them once a logger
// provider is installed.
//
// Inputs:
//   - name: the instrumentation scope of the log bridge, the application name.
//   - logFile: `application.log_file`; it is truncated on start. A file that
//     cannot be created is reported and logging continues on stdout alone.
//
// Outputs:
//   - closeFn: closes the file. It does not restore the previous defaults.
func SetupLogging(name string, logFile string) (closeFn func()) {
	var out io.Writer = os.Stdout
	closeFn = func() {}
	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			log.Printf("cannot create log file %s: %v", logFile, err)
		} else {
			out = io.MultiWriter(os.Stdout, file)
			closeFn = func() { _ = file.Close() }
		}
	}

	log.SetOutput(out)
	log.SetPrefix("[INFO] ")
	log.SetFlags(log.Ldate | log.Ltime)

	slog.SetDefault(slog.New(fanoutHandler{
		NewLogHandler(out, slog.LevelInfo),
		otelslog.NewHandler(name),
	}))
	return closeFn
}
