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

	"github.com/gin-gonic/gin"

	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/services"
)

// RepurposeRouter mounts POST /repurpose.
func RepurposeRouter(r *gin.RouterGroup, svc *services.RepurposeService) {
	r.POST("/repurpose", func(c *gin.Context) {
		var req model.RepurposeRequest
		if !bindJSON(c, &req) {
			return
		}
		content, err := svc.Repurpose(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, content)
	})
}
