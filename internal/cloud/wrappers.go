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

// Package cloud provides components for interacting with external services.
// This file implements a decorator around the Gemini models API that adds a
// process wide rate limiter, shared by every request that uses the model.
//
// Retrying is not done here. The generation client owns the retry and
// fallback policy; this wrapper only paces calls and classifies failures so
// the policy can tell transient errors from terminal ones.
package cloud

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
)

// QuotaAwareGenerativeAIModel pairs a model name and its generation settings
// with a token bucket limiter.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel creates a model limited to requestsPerSecond calls per
// second, with a burst of the same size. A non positive rate disables pacing.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Every(time.Second / time.Duration(requestsPerSecond))
		burst = requestsPerSecond
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(limit, burst),
	}
}

// GenerateContent waits for a token and calls the model. Errors are
// classified with ClassifyGenAIError.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, apperr.Wrap(apperr.ProviderUnavailable, err, "gemini rate limiter wait aborted")
	}
	resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
	if err != nil {
		return nil, ClassifyGenAIError(err, "gemini")
	}
	return resp, nil
}

// WithConfig returns a copy sharing the limiter but using cfg.
func (q *QuotaAwareGenerativeAIModel) WithConfig(cfg *genai.GenerateContentConfig) *QuotaAwareGenerativeAIModel {
	clone := *q
	clone.GenerativeContentConfig = cfg
	return &clone
}
