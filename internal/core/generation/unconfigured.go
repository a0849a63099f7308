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

package generation

import (
	"context"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
)

// Unconfigured stands in for a provider whose credentials are missing. Every
// call fails with ConfigurationMissing naming the setting to fix.
type Unconfigured struct {
	ProviderName string
	Setting      string
}

func (u Unconfigured) Name() string {
	return u.ProviderName
}

func (u Unconfigured) Complete(context.Context, Request) (string, error) {
	return "", apperr.Missing(u.Setting, u.ProviderName+" provider")
}
