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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files and overridden from the environment. It provides a
// structured way to manage settings for the generation providers, the
// document store, the transcript tools and the optional Google Cloud services
// (Storage, Pub/Sub, BigQuery).
//
// Secrets never live in the TOML files. Fields tagged `toml:"-"` are only
// filled by ApplyEnvironment.
package cloud

import (
	"fmt"

	"google.golang.org/genai"
)

// DefaultSafetySettings relaxes the content filters. Transcripts of ordinary
// marketing videos trip the default thresholds often enough to fail requests.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Names of the transcript strategies accepted in transcript.strategy_order.
const (
	StrategyAudio    = "audio"
	StrategyCaptions = "captions"
)

// Names of the supported vector store backends.
const (
	BackendSupabase = "supabase"
	BackendPgvector = "pgvector"
	BackendQdrant   = "qdrant"
)

// BigQueryDataSource represents the configuration for the usage ledger.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`     // The name of the BigQuery dataset. Empty disables the ledger.
	UsageTable  string `toml:"usage_table"` // The table receiving one row per request.
}

// PromptTemplates holds the prompts sent to the generation providers.
// Repurpose is a text/template rendered with the transcript, the description
// and an example of the expected JSON.
type PromptTemplates struct {
	RepurposeSystem string `toml:"repurpose_system"`
	Repurpose       string `toml:"repurpose"`
	ChatSystem      string `toml:"chat_system"`
	ToolGenerate    string `toml:"tool_generate"`
	JSONOnlySystem  string `toml:"json_only_system"`
	ImageExtraction string `toml:"image_extraction"`
	ChatQuestion    string `toml:"chat_question"`
	ToolRunContext  string `toml:"tool_run_context"`
}

// EmbeddingModel represents the configuration for a Gemini embedding model.
type EmbeddingModel struct {
	Model                string `toml:"model"`
	Dimensions           int32  `toml:"dimensions"`
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"`
}

// LLMModel represents the configuration for a Gemini generative model.
type LLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"` // Requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	ArchiveBucket string `toml:"archive_bucket"` // Original uploads are copied here when set.
	InboxBucket   string `toml:"inbox_bucket"`   // Objects finalized here are ingested through Pub/Sub.
}

// Generation configures the retry and fallback policy.
type Generation struct {
	PrimaryModel    string `toml:"primary_model"` // Key into AgentModels.
	JSONModel       string `toml:"json_model"`    // Key into AgentModels used for structured output.
	MaxRetries      int    `toml:"max_retries"`
	BaseDelayMillis int    `toml:"base_delay_ms"`
	MaxJitterMillis int    `toml:"max_jitter_ms"`
}

// Groq configures the OpenAI compatible secondary provider.
type Groq struct {
	BaseURL            string  `toml:"base_url"`
	Model              string  `toml:"model"`
	Temperature        float32 `toml:"temperature"`
	TranscriptionModel string  `toml:"transcription_model"`
	TranscriptionLang  string  `toml:"transcription_language"`
	APIKey             string  `toml:"-"`
}

// Transcript configures the acquisition strategies.
type Transcript struct {
	StrategyOrder   []string `toml:"strategy_order"`
	Languages       []string `toml:"languages"`
	TimeoutSeconds  int      `toml:"timeout_seconds"`
	MaxAudioBytes   int64    `toml:"max_audio_bytes"`
	MaxCaptionBytes int64    `toml:"max_caption_bytes"`
	Python          string   `toml:"python_path"`
	YtDlp           string   `toml:"ytdlp_path"`
	FFmpeg          string   `toml:"ffmpeg_path"`
	UserAgent       string   `toml:"ytdlp_user_agent"`
	Proxy           string   `toml:"-"`
	CookiesFile     string   `toml:"-"`
	ExtraArgs       []string `toml:"ytdlp_extra_args"`
}

// Metadata configures the description enrichment.
type Metadata struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	YouTubeAPIKey  string `toml:"-"`
}

// VectorStoreConfig selects and configures the document store backend.
type VectorStoreConfig struct {
	Backend          string `toml:"backend"`
	Table            string `toml:"table"`
	MatchFunction    string `toml:"match_function"`
	QdrantCollection string `toml:"qdrant_collection"`
	QdrantUseTLS     bool   `toml:"qdrant_use_tls"`
	SupabaseURL      string `toml:"-"`
	SupabaseKey      string `toml:"-"`
	DatabaseURL      string `toml:"-"`
	QdrantAddr       string `toml:"-"`
	QdrantAPIKey     string `toml:"-"`
}

// Ingestion configures document chunking and the indexing queue.
type Ingestion struct {
	ChunkSize         int     `toml:"chunk_size"`
	ChunkOverlap      int     `toml:"chunk_overlap"`
	MinChunkChars     int     `toml:"min_chunk_chars"`
	MaxUploadBytes    int64   `toml:"max_upload_bytes"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	Concurrency       int     `toml:"concurrency"`
	QueueSize         int     `toml:"queue_size"`
}

// Rag configures the similarity search used by chat and tools.
type Rag struct {
	MatchThreshold float64 `toml:"match_threshold"`
	MatchCount     int     `toml:"match_count"`
}

// Config represents the overall configuration for the application, loaded from TOML files.
type Config struct {
	Application struct {
		Name            string   `toml:"name"`
		GoogleProjectId string   `toml:"google_project_id"`
		GoogleLocation  string   `toml:"location"`
		ThreadPoolSize  int      `toml:"thread_pool_size"`
		Port            string   `toml:"port"`
		RoutePrefix     string   `toml:"route_prefix"`
		AllowedOrigins  []string `toml:"allowed_origins"`
		MaxPromptChars  int      `toml:"max_prompt_chars"`
		LogFile         string   `toml:"log_file"`
		SkipHealthCheck bool     `toml:"skip_health_check"`
		GeminiAPIKey    string   `toml:"-"`
	} `toml:"application"`
	Telemetry struct {
		Exporter string `toml:"exporter"` // "gcp" or "none".
	} `toml:"telemetry"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Keyed by a logical name (e.g., "DocumentInbox").
	EmbeddingModels    map[string]EmbeddingModel    `toml:"embedding_models"`
	AgentModels        map[string]LLMModel          `toml:"agent_models"`
	Generation         Generation                   `toml:"generation"`
	Groq               Groq                         `toml:"groq"`
	Transcript         Transcript                   `toml:"transcript"`
	Metadata           Metadata                     `toml:"metadata"`
	VectorStore        VectorStoreConfig            `toml:"vector_store"`
	Ingestion          Ingestion                    `toml:"ingestion"`
	Rag                Rag                          `toml:"rag"`
}

// Logical names used to look up entries in the config maps.
const (
	EmbeddingModelName    = "text"
	DocumentInboxListener = "DocumentInbox"
)

// NewConfig creates a Config holding the defaults the TOML files override.
// The maps are initialized so the loader can populate them.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		EmbeddingModels: map[string]EmbeddingModel{
			EmbeddingModelName: {Model: "text-embedding-004", Dimensions: 768, MaxRequestsPerMinute: 600},
		},
		AgentModels: map[string]LLMModel{
			"flash": {Model: "gemini-flash-latest", Temperature: 0.7, TopP: 0.95, TopK: 40, MaxTokens: 8192, RateLimit: 5},
			"flash-json": {Model: "gemini-flash-latest", Temperature: 0.7, TopP: 0.95, TopK: 40, MaxTokens: 8192,
				OutputFormat: "application/json", RateLimit: 5},
		},
	}
	c.Application.Name = "wrapper-ai"
	c.Application.Port = "8080"
	c.Application.RoutePrefix = "/api"
	c.Application.MaxPromptChars = 15000
	c.Application.ThreadPoolSize = 4
	c.Application.LogFile = "app.log"
	c.Telemetry.Exporter = "none"
	c.Generation = Generation{PrimaryModel: "flash", JSONModel: "flash-json", MaxRetries: 3, BaseDelayMillis: 1000, MaxJitterMillis: 1000}
	c.Groq = Groq{
		BaseURL:            "https://api.groq.com/openai/v1",
		Model:              "llama-3.3-70b-versatile",
		Temperature:        0.7,
		TranscriptionModel: "whisper-large-v3",
	}
	c.Transcript = Transcript{
		StrategyOrder:   []string{StrategyAudio, StrategyCaptions},
		Languages:       []string{"fr", "en"},
		TimeoutSeconds:  180,
		MaxAudioBytes:   25 << 20,
		MaxCaptionBytes: 8 << 20,
		Python:          "python3",
		YtDlp:           "yt-dlp",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	}
	c.Metadata.TimeoutSeconds = 10
	c.VectorStore = VectorStoreConfig{Backend: BackendSupabase, Table: "documents", MatchFunction: "match_documents", QdrantCollection: "documents"}
	c.Ingestion = Ingestion{
		ChunkSize:         1000,
		ChunkOverlap:      200,
		MinChunkChars:     50,
		MaxUploadBytes:    20 << 20,
		RequestsPerSecond: 2,
		Burst:             1,
		Concurrency:       1,
		QueueSize:         64,
	}
	c.Rag = Rag{MatchThreshold: 0.5, MatchCount: 5}
	c.PromptTemplates = DefaultPromptTemplates()
	return c
}

// Validate rejects settings that would make the services misbehave rather
// than fail cleanly. Missing credentials are not an error here.
func (c *Config) Validate() error {
	if len(c.Transcript.StrategyOrder) == 0 {
		return fmt.Errorf("transcript.strategy_order must name at least one strategy")
	}
	seen := make(map[string]bool)
	for _, name := range c.Transcript.StrategyOrder {
		if name != StrategyAudio && name != StrategyCaptions {
			return fmt.Errorf("transcript.strategy_order: unknown strategy %q", name)
		}
		if seen[name] {
			return fmt.Errorf("transcript.strategy_order: %q listed twice", name)
		}
		seen[name] = true
	}
	switch c.VectorStore.Backend {
	case BackendSupabase, BackendPgvector, BackendQdrant:
	default:
		return fmt.Errorf("vector_store.backend: unknown backend %q", c.VectorStore.Backend)
	}
	if c.Ingestion.ChunkSize <= 0 || c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("ingestion: chunk_overlap must be in [0, chunk_size)")
	}
	if c.Application.MaxPromptChars <= 0 {
		return fmt.Errorf("application.max_prompt_chars must be positive")
	}
	if _, ok := c.AgentModels[c.Generation.PrimaryModel]; !ok {
		return fmt.Errorf("generation.primary_model: no agent model %q", c.Generation.PrimaryModel)
	}
	if _, ok := c.AgentModels[c.Generation.JSONModel]; !ok {
		return fmt.Errorf("generation.json_model: no agent model %q", c.Generation.JSONModel)
	}
	return nil
}
