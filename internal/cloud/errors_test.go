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

package cloud_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
)

func TestClassifyGenAIError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"rate limited", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, apperr.QuotaExceeded},
		{"wrapped overload", fmt.Errorf("generate: %w", genai.APIError{Code: 503, Status: "UNAVAILABLE"}), apperr.ProviderUnavailable},
		{"gateway timeout", genai.APIError{Code: 504}, apperr.ProviderUnavailable},
		{"bad request", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}, apperr.Internal},
		{"textual quota", errors.New("rpc error: RESOURCE_EXHAUSTED"), apperr.QuotaExceeded},
		{"deadline", context.DeadlineExceeded, apperr.ProviderUnavailable},
		{"unknown", errors.New("boom"), apperr.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cloud.ClassifyGenAIError(tc.err, "gemini")
			assert.Equal(t, tc.want, apperr.KindOf(got))
			assert.Contains(t, got.Error(), tc.err.Error())
		})
	}
	assert.NoError(t, cloud.ClassifyGenAIError(nil, "gemini"))
}

func TestClassifyOpenAIError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429, Message: "Rate limit reached"}, apperr.QuotaExceeded},
		{"bad gateway", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, apperr.ProviderUnavailable},
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401, Message: "Invalid API Key"}, apperr.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperr.KindOf(cloud.ClassifyOpenAIError(tc.err, "groq")))
		})
	}
}

func TestClassificationKeepsExistingKinds(t *testing.T) {
	original := apperr.New(apperr.ConfigurationMissing, "GROQ_API_KEY is not configured")
	assert.Same(t, error(original), cloud.ClassifyOpenAIError(original, "groq"))
}
