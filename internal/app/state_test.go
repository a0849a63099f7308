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

package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrapperai/wrapper-ai/internal/app"
	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/metadata"
	"github.com/wrapperai/wrapper-ai/internal/core/transcript"
	test "github.com/wrapperai/wrapper-ai/internal/testutil"
)

func fakeClients() *cloud.ServiceClients {
	return &cloud.ServiceClients{
		Primary:   generation.Unconfigured{ProviderName: "gemini", Setting: cloud.EnvGoogleAPIKey},
		Secondary: generation.Unconfigured{ProviderName: "groq", Setting: cloud.EnvGroqAPIKey},
		Embedder:  &test.HashEmbedder{},
		Store:     &test.MemoryStore{},
	}
}

func TestNewAcquirerFollowsStrategyOrder(t *testing.T) {
	config := cloud.NewConfig()
	config.Transcript.StrategyOrder = []string{cloud.StrategyCaptions, cloud.StrategyAudio}

	acquirer := app.NewAcquirer(config, fakeClients())

	require.Len(t, acquirer.Sources, 2)
	assert.Equal(t, "captions", acquirer.Sources[0].Name())
	assert.Equal(t, "audio", acquirer.Sources[1].Name())
	assert.Equal(t, 180*time.Second, acquirer.Timeout)
	captions := acquirer.Sources[0].(*transcript.CaptionSource)
	assert.Equal(t, []string{"fr", "en"}, captions.Languages)
}

func TestNewEnricherWithoutDataAPI(t *testing.T) {
	enricher := app.NewEnricher(cloud.NewConfig(), fakeClients())

	assert.Equal(t, "innertube", enricher.Primary.Name())
	assert.IsType(t, &metadata.WatchPageClient{}, enricher.Secondary)
	assert.Equal(t, 10*time.Second, enricher.Timeout)
}

func TestNewGenerationClientAppliesRetrySettings(t *testing.T) {
	config := cloud.NewConfig()
	config.Generation.MaxRetries = 5
	config.Generation.BaseDelayMillis = 250
	config.Generation.MaxJitterMillis = 0

	client := app.NewGenerationClient(config, fakeClients())

	assert.Equal(t, 5, client.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, client.BaseDelay)
	assert.Equal(t, time.Duration(0), client.MaxJitter)
}

func TestNewStateManager(t *testing.T) {
	config := cloud.NewConfig()
	config.Application.SkipHealthCheck = true

	state, err := app.NewStateManager(config, fakeClients())
	require.NoError(t, err)
	defer state.Close()

	handlers := state.Handlers()
	assert.Equal(t, config.Ingestion.MaxUploadBytes, handlers.MaxUploadBytes)
	assert.NotNil(t, state.Inbox)
	assert.Equal(t, config.Rag.MatchCount, state.Rag.Count)

	report, code := state.Health.Check(context.Background())
	assert.Equal(t, 200, code)
	assert.Equal(t, map[string]string{"gemini": "skipped", "groq": "skipped"}, report.Providers)
}

func TestNewStateManagerRejectsBrokenTemplate(t *testing.T) {
	config := cloud.NewConfig()
	config.PromptTemplates.ChatSystem = "{{.Context"

	_, err := app.NewStateManager(config, fakeClients())
	assert.Error(t, err)
}
