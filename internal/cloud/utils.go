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

// Package cloud provides utility functions for the application.
// This file contains helpers for loading the hierarchical configuration,
// applying environment overrides and flattening Gemini responses.
//
// Configuration is resolved in three layers:
//  1. The built in defaults from NewConfig.
//  2. `<GCP_CONFIG_PREFIX>/.env.toml`, then `.env.<GCP_RUNTIME>.toml`.
//  3. Environment variables (optionally from a `.env` file), which carry the
//     secrets and the deployment specific tool paths.
package cloud

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
)

// Environment variables recognized by ApplyEnvironment.
const (
	EnvGoogleAPIKey     = "GOOGLE_API_KEY"
	EnvGroqAPIKey       = "GROQ_API_KEY"
	EnvSupabaseURL      = "SUPABASE_URL"
	EnvSupabaseKey      = "SUPABASE_KEY"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvQdrantAddr       = "QDRANT_ADDR"
	EnvQdrantAPIKey     = "QDRANT_API_KEY"
	EnvYouTubeAPIKey    = "YOUTUBE_API_KEY"
	EnvSkipHealthCheck  = "SKIP_HEALTH_CHECK"
	EnvYtDlpPath        = "YTDLP_PATH"
	EnvYtDlpUserAgent   = "YTDLP_USER_AGENT"
	EnvYtDlpProxy       = "YTDLP_PROXY"
	EnvYtDlpCookiesFile = "YTDLP_COOKIES_FILE"
	EnvYtDlpExtraArgs   = "YTDLP_EXTRA_ARGS"
	EnvPythonPath       = "PYTHON_PATH"
	EnvFFmpegPath       = "FFMPEG_PATH"
	EnvGoogleProject    = "GOOGLE_CLOUD_PROJECT"
	EnvPort             = "PORT"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime specific configuration paths
// derived from GCP_CONFIG_PREFIX and GCP_RUNTIME. The runtime defaults to "test".
func ConfigFiles() (base string, runtime string) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}
	base = prefix + ConfigFileBaseName + ConfigFileExtension
	runtime = prefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	return base, runtime
}

// LoadConfig decodes the base file and then the runtime file into baseConfig.
// Values in the runtime file overwrite the base values. Missing files are
// skipped; malformed files are an error.
func LoadConfig(baseConfig interface{}) error {
	baseConfigFileName, envConfigFileName := ConfigFiles()
	for _, name := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(name) {
			slog.Debug("configuration file not found, skipping", slog.String("file", name))
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Info("configuration file loaded", slog.String("file", name))
	}
	return nil
}

// ApplyEnvironment loads a `.env` file when present and copies the
// recognized environment variables over config. Unset variables leave the
// configured value in place.
func ApplyEnvironment(config *Config) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", slog.Any("error", err))
	}

	setString(&config.Application.GeminiAPIKey, EnvGoogleAPIKey)
	setString(&config.Groq.APIKey, EnvGroqAPIKey)
	setString(&config.VectorStore.SupabaseURL, EnvSupabaseURL)
	setString(&config.VectorStore.SupabaseKey, EnvSupabaseKey)
	setString(&config.VectorStore.DatabaseURL, EnvDatabaseURL)
	setString(&config.VectorStore.QdrantAddr, EnvQdrantAddr)
	setString(&config.VectorStore.QdrantAPIKey, EnvQdrantAPIKey)
	setString(&config.Metadata.YouTubeAPIKey, EnvYouTubeAPIKey)
	setString(&config.Transcript.YtDlp, EnvYtDlpPath)
	setString(&config.Transcript.UserAgent, EnvYtDlpUserAgent)
	setString(&config.Transcript.Proxy, EnvYtDlpProxy)
	setString(&config.Transcript.CookiesFile, EnvYtDlpCookiesFile)
	setString(&config.Transcript.Python, EnvPythonPath)
	setString(&config.Transcript.FFmpeg, EnvFFmpegPath)
	setString(&config.Application.GoogleProjectId, EnvGoogleProject)
	setString(&config.Application.Port, EnvPort)

	if extra, ok := os.LookupEnv(EnvYtDlpExtraArgs); ok {
		config.Transcript.ExtraArgs = strings.Fields(extra)
	}
	if skip, ok := os.LookupEnv(EnvSkipHealthCheck); ok {
		value, err := strconv.ParseBool(strings.TrimSpace(skip))
		if err != nil {
			slog.Warn("ignoring invalid boolean", slog.String("variable", EnvSkipHealthCheck), slog.String("value", skip))
		} else {
			config.Application.SkipHealthCheck = value
		}
	}
}

func setString(target *string, variable string) {
	if value, ok := os.LookupEnv(variable); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

// ResponseText concatenates the text parts of every candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	value := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				value += part.Text
			}
		}
	}
	return value
}

// NewTextPart wraps a prompt as user content.
func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}
