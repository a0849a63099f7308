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

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wrapperai/wrapper-ai/internal/core/services"
)

// HealthRouter mounts GET /health. It answers 503 when no provider responds.
func HealthRouter(r *gin.RouterGroup, svc *services.HealthService) {
	r.GET("/health", func(c *gin.Context) {
		report, code := svc.Check(c.Request.Context())
		c.JSON(code, report)
	})
}
