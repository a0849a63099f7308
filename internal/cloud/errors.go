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
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
)

// kindForStatus maps an upstream HTTP status to an error kind. Anything that
// is not a rate limit or a server side outage is terminal.
func kindForStatus(status int) apperr.Kind {
	switch status {
	case http.StatusTooManyRequests:
		return apperr.QuotaExceeded
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apperr.ProviderUnavailable
	default:
		return apperr.Internal
	}
}

// ClassifyGenAIError converts a Gemini SDK error into a classified error.
func ClassifyGenAIError(err error, provider string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	var value genai.APIError
	if errors.As(err, &value) {
		return apperr.Wrap(kindForStatus(value.Code), err, provider+" request failed: "+value.Status)
	}
	var pointer *genai.APIError
	if errors.As(err, &pointer) && pointer != nil {
		return apperr.Wrap(kindForStatus(pointer.Code), err, provider+" request failed: "+pointer.Status)
	}
	return classifyTransport(err, provider)
}

// ClassifyOpenAIError converts a go-openai error into a classified error.
func ClassifyOpenAIError(err error, provider string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Wrap(kindForStatus(apiErr.HTTPStatusCode), err, provider+" request failed: "+http.StatusText(apiErr.HTTPStatusCode))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.Wrap(kindForStatus(reqErr.HTTPStatusCode), err, provider+" request failed: "+http.StatusText(reqErr.HTTPStatusCode))
	}
	return classifyTransport(err, provider)
}

// classifyTransport handles errors that carry no HTTP status. Only the
// canonical gRPC style status names are matched.
func classifyTransport(err error, provider string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.ProviderUnavailable, err, provider+" did not answer in time")
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.Internal, err, "request cancelled")
	}
	message := err.Error()
	switch {
	case strings.Contains(message, "RESOURCE_EXHAUSTED"):
		return apperr.Wrap(apperr.QuotaExceeded, err, provider+" quota exceeded")
	case strings.Contains(message, "UNAVAILABLE"):
		return apperr.Wrap(apperr.ProviderUnavailable, err, provider+" is unavailable")
	}
	return apperr.Wrap(apperr.Internal, err, provider+" request failed")
}
