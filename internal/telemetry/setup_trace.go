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
// configures tracing and metrics.
//
// The exporter is chosen by `telemetry.exporter`:
//   - "none" (or empty), the local and test default: only the propagator is
//     installed and the global no-op providers stay in place, so spans and
//     counters created by the chains cost next to nothing;
//   - "gcp": a resource is detected (GCE, GKE, Cloud Run...) and named after
//     the application, then a tracer provider batching to Cloud Trace and a
//     meter provider reading periodically into Cloud Monitoring are installed
//     globally. Without a Google Cloud project the export is skipped with a
//     warning rather than failing startup.
package telemetry

import (
	"context"
	"errors"
	"log/slog"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	telemetryexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
)

// Accepted values of `telemetry.exporter`.
const (
	ExporterGCP  = "gcp"
	ExporterNone = "none"
)

// SetupOpenTelemetry installs the propagators and, with the "gcp" exporter,
// trace and metric providers exporting to Cloud Trace and Cloud Monitoring.
// With "none" the global no-op providers stay in place.
//
// Inputs:
//   - ctx: used for resource detection.
//   - config: `telemetry.exporter`, `application.name` and the project id.
//
// Outputs:
//   - shutdown: flushes and stops whatever was started, in start order. The
//     server calls it during graceful shutdown.
//   - err: an unknown exporter name, or an exporter that could not be
//     created. A partially detected resource is only logged.
func SetupOpenTelemetry(ctx context.Context, config *cloud.Config) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	switch config.Telemetry.Exporter {
	case ExporterNone, "":
		return shutdown, nil
	case ExporterGCP:
	default:
		return nil, errors.New("telemetry.exporter must be \"gcp\" or \"none\"")
	}
	if config.Application.GoogleProjectId == "" {
		slog.WarnContext(ctx, "GOOGLE_CLOUD_PROJECT is not set; telemetry export is disabled")
		return shutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithDetectors(gcp.NewDetector()),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.Application.Name),
		),
	)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		slog.Warn("partial resource detection", slog.Any("error", err))
	} else if err != nil {
		return nil, err
	}

	traceExporter, err := telemetryexporter.New(telemetryexporter.WithProjectID(config.Application.GoogleProjectId))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	otel.SetTracerProvider(tp)

	mExporter, err := mexporter.New(mexporter.WithProjectID(config.Application.GoogleProjectId))
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	mProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(mExporter)),
		metric.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, mProvider.Shutdown)
	otel.SetMeterProvider(mProvider)

	return shutdown, nil
}
