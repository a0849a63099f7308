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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
)

func TestNewConfigDefaultsAreValid(t *testing.T) {
	config := cloud.NewConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, []string{cloud.StrategyAudio, cloud.StrategyCaptions}, config.Transcript.StrategyOrder)
	assert.Equal(t, 15000, config.Application.MaxPromptChars)
	assert.Equal(t, 1000, config.Ingestion.ChunkSize)
	assert.Equal(t, 200, config.Ingestion.ChunkOverlap)
	assert.Equal(t, 0.5, config.Rag.MatchThreshold)
	assert.Equal(t, 5, config.Rag.MatchCount)
	assert.Equal(t, "llama-3.3-70b-versatile", config.Groq.Model)
	assert.Equal(t, "text-embedding-004", config.EmbeddingModels[cloud.EmbeddingModelName].Model)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*cloud.Config)
	}{
		{"unknown strategy", func(c *cloud.Config) { c.Transcript.StrategyOrder = []string{"telepathy"} }},
		{"duplicate strategy", func(c *cloud.Config) { c.Transcript.StrategyOrder = []string{"audio", "audio"} }},
		{"no strategy", func(c *cloud.Config) { c.Transcript.StrategyOrder = nil }},
		{"unknown backend", func(c *cloud.Config) { c.VectorStore.Backend = "redis" }},
		{"overlap too large", func(c *cloud.Config) { c.Ingestion.ChunkOverlap = c.Ingestion.ChunkSize }},
		{"zero prompt budget", func(c *cloud.Config) { c.Application.MaxPromptChars = 0 }},
		{"missing agent model", func(c *cloud.Config) { c.Generation.PrimaryModel = "pro" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := cloud.NewConfig()
			tc.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestLoadConfigLayersRuntimeOverBase(t *testing.T) {
	dir := t.TempDir()
	base := `
[application]
name = "wrapper-ai-base"
port = "9000"

[transcript]
strategy_order = ["captions"]
languages = ["en"]
`
	runtime := `
[application]
port = "9100"

[rag]
match_count = 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.unit.toml"), []byte(runtime), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "unit")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))

	assert.Equal(t, "wrapper-ai-base", config.Application.Name)
	assert.Equal(t, "9100", config.Application.Port)
	assert.Equal(t, []string{"captions"}, config.Transcript.StrategyOrder)
	assert.Equal(t, 8, config.Rag.MatchCount)
	assert.Equal(t, 0.5, config.Rag.MatchThreshold)
}

func TestLoadConfigSkipsMissingFiles(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, t.TempDir())
	t.Setenv(cloud.EnvConfigRuntime, "absent")
	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))
	assert.Equal(t, "8080", config.Application.Port)
}

func TestLoadConfigReportsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte("[application\nport = "), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}

func TestConfigFilesDefaultsToTestRuntime(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, "configs")
	t.Setenv(cloud.EnvConfigRuntime, "")
	base, runtime := cloud.ConfigFiles()
	assert.Equal(t, filepath.Join("configs", ".env.toml"), base)
	assert.Equal(t, filepath.Join("configs", ".env.test.toml"), runtime)
}

func TestApplyEnvironmentOverridesSecretsAndTools(t *testing.T) {
	t.Setenv(cloud.EnvGoogleAPIKey, "gemini-key")
	t.Setenv(cloud.EnvGroqAPIKey, " groq-key ")
	t.Setenv(cloud.EnvSupabaseURL, "https://example.supabase.co")
	t.Setenv(cloud.EnvSupabaseKey, "service-key")
	t.Setenv(cloud.EnvYtDlpPath, "/opt/bin/yt-dlp")
	t.Setenv(cloud.EnvYtDlpProxy, "http://proxy:3128")
	t.Setenv(cloud.EnvYtDlpExtraArgs, "--force-ipv4   --geo-bypass")
	t.Setenv(cloud.EnvSkipHealthCheck, "true")
	t.Setenv(cloud.EnvPort, "3000")

	config := cloud.NewConfig()
	cloud.ApplyEnvironment(config)

	assert.Equal(t, "gemini-key", config.Application.GeminiAPIKey)
	assert.Equal(t, "groq-key", config.Groq.APIKey)
	assert.Equal(t, "https://example.supabase.co", config.VectorStore.SupabaseURL)
	assert.Equal(t, "service-key", config.VectorStore.SupabaseKey)
	assert.Equal(t, "/opt/bin/yt-dlp", config.Transcript.YtDlp)
	assert.Equal(t, "http://proxy:3128", config.Transcript.Proxy)
	assert.Equal(t, []string{"--force-ipv4", "--geo-bypass"}, config.Transcript.ExtraArgs)
	assert.True(t, config.Application.SkipHealthCheck)
	assert.Equal(t, "3000", config.Application.Port)
}

func TestApplyEnvironmentIgnoresInvalidBoolean(t *testing.T) {
	t.Setenv(cloud.EnvSkipHealthCheck, "sometimes")
	config := cloud.NewConfig()
	cloud.ApplyEnvironment(config)
	assert.False(t, config.Application.SkipHealthCheck)
}
