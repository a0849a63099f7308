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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/services"
)

// Dashboard mounts GET /stats, the usage summary read back from the ledger.
// The optional "days" query parameter selects the window.
func Dashboard(r *gin.RouterGroup, svc *services.UsageService) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			days := 0
			if raw := c.Query("days"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil {
					respondError(c, apperr.Wrap(apperr.InvalidInput, err, "days must be a number"))
					return
				}
				days = n
			}
			out, err := svc.Stats(c.Request.Context(), days)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
