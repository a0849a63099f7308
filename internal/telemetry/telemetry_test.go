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

package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/telemetry"
)

func TestLogHandlerUsesCloudLoggingFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(telemetry.NewLogHandler(&buf, slog.LevelInfo))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))
	logger.With(slog.String("component", "test")).WarnContext(ctx, "quota reached")

	out := make(map[string]any)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "WARNING", out["severity"])
	assert.Equal(t, "quota reached", out["message"])
	assert.Equal(t, "test", out["component"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["logging.googleapis.com/trace"])
	assert.Equal(t, true, out["logging.googleapis.com/trace_sampled"])
	assert.Contains(t, out, "timestamp")
}

func TestSetupOpenTelemetryWithoutExporter(t *testing.T) {
	config := cloud.NewConfig()
	shutdown, err := telemetry.SetupOpenTelemetry(context.Background(), config)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	config.Telemetry.Exporter = "zipkin"
	_, err = telemetry.SetupOpenTelemetry(context.Background(), config)
	assert.Error(t, err)
}

func TestSetupLoggingWritesFile(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)
	defer log.SetOutput(os.Stderr)
	logFile := filepath.Join(t.TempDir(), "app.log")

	closeFn := telemetry.SetupLogging("wrapper-ai-test", logFile)
	slog.Info("server ready", slog.String("port", "8080"))
	closeFn()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"server ready"`)
	assert.Contains(t, string(data), `"severity":"INFO"`)
}
