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

package services

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

const (
	StatusOperational = "operational"
	StatusDown        = "down"

	ProviderOK            = "ok"
	ProviderNotConfigured = "not configured"
	ProviderSkipped       = "skipped"
)

// HealthService reports whether the generation providers answer.
type HealthService struct {
	Providers []generation.Provider
	Skip      bool
	Timeout   time.Duration
}

// Check sends a short prompt to every provider. The service is operational
// when at least one of them answers. The returned code is the HTTP status to
// send with the report. Provider errors are reported with their public
// message only; the full error goes to the log.
func (s *HealthService) Check(ctx context.Context) (*model.HealthReport, int) {
	report := &model.HealthReport{Status: StatusDown, Providers: make(map[string]string)}
	if s.Skip {
		report.Status = StatusOperational
		for _, p := range s.Providers {
			report.Providers[p.Name()] = ProviderSkipped
		}
		return report, http.StatusOK
	}

	for _, p := range s.Providers {
		if _, ok := p.(generation.Unconfigured); ok {
			report.Providers[p.Name()] = ProviderNotConfigured
			continue
		}
		if err := s.ping(ctx, p); err != nil {
			slog.WarnContext(ctx, "health check failed", slog.String("provider", p.Name()), slog.Any("error", err))
			report.Providers[p.Name()] = "error: " + apperr.PublicMessage(err)
			continue
		}
		report.Providers[p.Name()] = ProviderOK
		report.Status = StatusOperational
	}
	if report.Status != StatusOperational {
		return report, http.StatusServiceUnavailable
	}
	return report, http.StatusOK
}

func (s *HealthService) ping(ctx context.Context, p generation.Provider) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	_, err := p.Complete(ctx, generation.Request{Prompt: "ping"})
	return err
}
