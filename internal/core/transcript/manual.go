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

package transcript

import (
	"strings"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// Manual wraps text pasted by the user. No acquisition strategy runs for it.
func Manual(text string) (*model.TranscriptResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperr.New(apperr.EmptyContent, "the provided text is empty")
	}
	return model.NewTranscriptResult(trimmed, model.StrategyManual), nil
}
