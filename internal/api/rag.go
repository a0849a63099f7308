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
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/services"
)

// multipartOverhead is the room left for the form framing around the file.
const multipartOverhead = 1 << 20

type chatRequest struct {
	Message string `json:"message"`
}

// RagRouter mounts the document routes: POST /rag/chat and POST /rag/ingest.
func RagRouter(r *gin.RouterGroup, rag *services.RagService, ingest *services.IngestService, maxUploadBytes int64) {
	group := r.Group("/rag")
	{
		group.POST("/chat", func(c *gin.Context) {
			var req chatRequest
			if !bindJSON(c, &req) {
				return
			}
			answer, err := rag.Chat(c.Request.Context(), req.Message)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, answer)
		})

		group.POST("/ingest", func(c *gin.Context) {
			filename, data, err := readUpload(c, maxUploadBytes)
			if err != nil {
				respondError(c, err)
				return
			}
			result, err := ingest.Ingest(c.Request.Context(), filename, data)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": fmt.Sprintf("%d segments indexed", result.Saved),
				"result":  result,
			})
		})
	}
}

// readUpload returns the multipart "file" field, refusing files larger than
// maxBytes.
func readUpload(c *gin.Context, maxBytes int64) (string, []byte, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, apperr.Newf(apperr.InvalidInput, "the file exceeds %d bytes", maxBytes)
		}
		return "", nil, apperr.Wrap(apperr.InvalidInput, err, "no file was provided")
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return "", nil, apperr.Newf(apperr.InvalidInput, "the file exceeds %d bytes", maxBytes)
	}
	f, err := header.Open()
	if err != nil {
		return "", nil, apperr.Wrap(apperr.InvalidInput, err, "the uploaded file cannot be read")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.InvalidInput, err, "the uploaded file cannot be read")
	}
	return header.Filename, data, nil
}
