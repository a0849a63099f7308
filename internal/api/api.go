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

// Package api exposes the services over HTTP. Every route answers with JSON;
// failures carry a single "error" field holding a message safe to show to the
// end user, and the status code is derived from the error kind.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/services"
)

// Handlers groups the services behind the routes.
type Handlers struct {
	Repurpose      *services.RepurposeService
	Ingest         *services.IngestService
	Rag            *services.RagService
	Tools          *services.ToolService
	Health         *services.HealthService
	Usage          *services.UsageService
	MaxUploadBytes int64
}

// Register mounts every route on r.
func (h *Handlers) Register(r *gin.RouterGroup) {
	RepurposeRouter(r, h.Repurpose)
	RagRouter(r, h.Rag, h.Ingest, h.MaxUploadBytes)
	ToolsRouter(r, h.Tools)
	HealthRouter(r, h.Health)
	Dashboard(r, h.Usage)
}

func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	slog.ErrorContext(c.Request.Context(), "request failed",
		slog.String("path", c.FullPath()),
		slog.String("kind", kind.String()),
		slog.Any("error", err))
	c.JSON(apperr.HTTPStatus(kind), gin.H{"error": apperr.PublicMessage(err)})
}

// bindJSON decodes the request body into target and answers 400 when it
// cannot.
func bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		respondError(c, apperr.Wrap(apperr.InvalidInput, err, "the request body must be a JSON object"))
		return false
	}
	return true
}
