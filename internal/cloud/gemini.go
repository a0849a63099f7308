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

package cloud

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
)

// GeminiProvider adapts the agent models to generation.Provider. Text
// requests use Text, JSON requests use JSON.
type GeminiProvider struct {
	Text *QuotaAwareGenerativeAIModel
	JSON *QuotaAwareGenerativeAIModel
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) Complete(ctx context.Context, req generation.Request) (string, error) {
	m := g.Text
	if req.JSON && g.JSON != nil {
		m = g.JSON
	}
	if m == nil {
		return "", apperr.Missing(EnvGoogleAPIKey, "gemini provider")
	}
	if req.System != "" {
		cfg := genai.GenerateContentConfig{}
		if m.GenerativeContentConfig != nil {
			cfg = *m.GenerativeContentConfig
		}
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
		if req.JSON {
			cfg.ResponseMIMEType = "application/json"
		}
		m = m.WithConfig(&cfg)
	}
	resp, err := m.GenerateContent(ctx, NewTextPart(req.Prompt))
	if err != nil {
		return "", err
	}
	text := ResponseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.MalformedResponse, "gemini returned an empty response")
	}
	return text, nil
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder calls EmbedContent on the configured embedding model. All
// callers share Limiter.
type GeminiEmbedder struct {
	Models     *genai.Models
	Model      string
	Dimensions int32
	Limiter    *rate.Limiter
}

// NewGeminiEmbedder paces requests at maxPerMinute. Zero disables pacing.
func NewGeminiEmbedder(models *genai.Models, cfg EmbeddingModel) *GeminiEmbedder {
	limit := rate.Inf
	if cfg.MaxRequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.MaxRequestsPerMinute))
	}
	return &GeminiEmbedder{
		Models:     models,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Limiter:    rate.NewLimiter(limit, 1),
	}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.Models == nil {
		return nil, apperr.Missing(EnvGoogleAPIKey, "embeddings")
	}
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			return nil, apperr.Wrap(apperr.ProviderUnavailable, err, "embedding rate limiter wait aborted")
		}
	}
	var cfg *genai.EmbedContentConfig
	if e.Dimensions > 0 {
		dims := e.Dimensions
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}
	resp, err := e.Models.EmbedContent(ctx, e.Model, genai.Text(text), cfg)
	if err != nil {
		return nil, ClassifyGenAIError(err, "gemini embeddings")
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, apperr.New(apperr.MalformedResponse, "gemini returned no embedding")
	}
	return resp.Embeddings[0].Values, nil
}

// GeminiImageReader transcribes the text visible in an image.
type GeminiImageReader struct {
	Model  *QuotaAwareGenerativeAIModel
	Prompt string
}

func (r *GeminiImageReader) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if r == nil || r.Model == nil {
		return "", apperr.Missing(EnvGoogleAPIKey, "image text extraction")
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(r.Prompt),
	}
	resp, err := r.Model.GenerateContent(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(ResponseText(resp)), nil
}
