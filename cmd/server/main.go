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

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/wrapperai/wrapper-ai/internal/telemetry"
)

func main() {
	config := GetConfig()

	closeLog := telemetry.SetupLogging(config.Application.Name, config.Application.LogFile)
	defer closeLog()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Error("telemetry shutdown failed", slog.Any("error", err))
		}
	}()
	slog.Info("Tracing initialized", slog.String("exporter", config.Telemetry.Exporter))

	state, err := InitState(ctx, config)
	if err != nil {
		slog.Error("Failed to initialize state", slog.Any("error", err))
		os.Exit(1)
	}
	defer state.Close()
	slog.Info("Initialized State")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.New(corsConfig(config.Application.AllowedOrigins)))

	state.Handlers().Register(r.Group(config.Application.RoutePrefix))

	srv := &http.Server{
		Addr:    ":" + config.Application.Port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen", slog.Any("error", err))
			cancel()
		}
	}()
	slog.Info("Server ready", slog.String("port", config.Application.Port), slog.String("prefix", config.Application.RoutePrefix))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	slog.Info("Shutdown Server ...")

	// Repurpose requests can spend minutes acquiring a transcript.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", slog.Any("error", err))
	}
	cancel()
	slog.Info("Server exiting")
}

// corsConfig allows every origin when none are configured, as in local
// development.
func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	return c
}
