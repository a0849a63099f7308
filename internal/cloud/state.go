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
// This file builds the `ServiceClients` container that holds every client the
// application talks to: the generation providers, the embedding model, the
// document store and the optional Google Cloud services.
//
// Startup never fails because a credential is missing. Each missing key is
// logged once, the corresponding client stays unset, and the requests that
// need it fail with a ConfigurationMissing error naming the variable.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	"google.golang.org/genai"

	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/transcript"
)

// ServiceClients is the dependency container shared by the services, the
// HTTP handlers and the listeners.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BiqQueryClient  *bigquery.Client
	GroqClient      *openai.Client
	YouTubeService  *youtube.Service
	PubSubListeners map[string]*PubSubListener
	EmbeddingModels map[string]*GeminiEmbedder
	AgentModels     map[string]*QuotaAwareGenerativeAIModel

	Primary     generation.Provider
	Secondary   generation.Provider
	Transcriber transcript.SpeechToText
	Embedder    Embedder
	ImageReader *GeminiImageReader
	Store       VectorStore
	Ledger      UsageLedger
}

// Close releases every client that was created.
func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BiqQueryClient != nil {
		_ = c.BiqQueryClient.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// NewCloudServiceClients creates the clients the configuration and the
// environment allow. The returned error is reserved for invalid settings.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		EmbeddingModels: make(map[string]*GeminiEmbedder),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}

	cloud.initGemini(ctx, config)
	cloud.initGroq(config)
	cloud.initYouTube(ctx, config)
	cloud.initStore(ctx, config)
	cloud.initGoogleCloud(ctx, config)
	return cloud, nil
}

func (c *ServiceClients) initGemini(ctx context.Context, config *Config) {
	c.Primary = generation.Unconfigured{ProviderName: "gemini", Setting: EnvGoogleAPIKey}
	c.Embedder = &GeminiEmbedder{}
	c.ImageReader = &GeminiImageReader{Prompt: config.PromptTemplates.ImageExtraction}
	if config.Application.GeminiAPIKey == "" {
		slog.WarnContext(ctx, "GOOGLE_API_KEY is not set; the primary provider and embeddings are disabled")
		return
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.Application.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		slog.ErrorContext(ctx, "error creating genai client", slog.Any("error", err))
		return
	}
	c.GenAIClient = gc

	for embKey, values := range config.EmbeddingModels {
		c.EmbeddingModels[embKey] = NewGeminiEmbedder(gc.Models, values)
	}
	for amKey, values := range config.AgentModels {
		cfg := &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](values.Temperature),
			TopP:             genai.Ptr[float32](values.TopP),
			TopK:             genai.Ptr[float32](values.TopK),
			MaxOutputTokens:  values.MaxTokens,
			SafetySettings:   DefaultSafetySettings,
			ResponseMIMEType: values.OutputFormat,
		}
		if values.SystemInstructions != "" {
			cfg.SystemInstruction = genai.NewContentFromText(values.SystemInstructions, genai.RoleUser)
		}
		c.AgentModels[amKey] = NewQuotaAwareModel(cfg, values.Model, gc.Models, values.RateLimit)
	}

	if embedder, ok := c.EmbeddingModels[EmbeddingModelName]; ok {
		c.Embedder = embedder
	}
	c.Primary = &GeminiProvider{
		Text: c.AgentModels[config.Generation.PrimaryModel],
		JSON: c.AgentModels[config.Generation.JSONModel],
	}
	c.ImageReader.Model = c.AgentModels[config.Generation.PrimaryModel]
}

func (c *ServiceClients) initGroq(config *Config) {
	c.Secondary = generation.Unconfigured{ProviderName: "groq", Setting: EnvGroqAPIKey}
	if config.Groq.APIKey == "" {
		slog.Warn("GROQ_API_KEY is not set; the fallback provider and audio transcription are disabled")
		return
	}
	c.GroqClient = NewGroqClient(config.Groq.APIKey, config.Groq.BaseURL)
	c.Secondary = &GroqProvider{
		Client:      c.GroqClient,
		Model:       config.Groq.Model,
		Temperature: config.Groq.Temperature,
		JSONSystem:  config.PromptTemplates.JSONOnlySystem,
	}
	c.Transcriber = &GroqTranscriber{
		Client:   c.GroqClient,
		Model:    config.Groq.TranscriptionModel,
		Language: config.Groq.TranscriptionLang,
	}
}

func (c *ServiceClients) initYouTube(ctx context.Context, config *Config) {
	if config.Metadata.YouTubeAPIKey == "" {
		slog.InfoContext(ctx, "YOUTUBE_API_KEY is not set; descriptions come from the public player data")
		return
	}
	svc, err := youtube.NewService(ctx, option.WithAPIKey(config.Metadata.YouTubeAPIKey))
	if err != nil {
		slog.WarnContext(ctx, "error creating youtube data api client", slog.Any("error", err))
		return
	}
	c.YouTubeService = svc
}

func (c *ServiceClients) initStore(ctx context.Context, config *Config) {
	dims := int32(768)
	if emb, ok := config.EmbeddingModels[EmbeddingModelName]; ok && emb.Dimensions > 0 {
		dims = emb.Dimensions
	}
	var (
		store VectorStore
		err   error
	)
	vs := config.VectorStore
	switch vs.Backend {
	case BackendPgvector:
		store, err = ConnectPgvector(ctx, vs.DatabaseURL, vs, dims)
	case BackendQdrant:
		store, err = NewQdrantStore(ctx, vs.QdrantAddr, vs.QdrantAPIKey, vs, dims)
	default:
		store, err = NewSupabaseStore(vs.SupabaseURL, vs.SupabaseKey, vs.Table, vs.MatchFunction)
	}
	if err != nil {
		slog.WarnContext(ctx, "document store is unavailable", slog.String("backend", vs.Backend), slog.Any("error", err))
		c.Store = &UnavailableStore{Backend: vs.Backend, Err: err}
		return
	}
	c.Store = store
}

// initGoogleCloud creates the Storage, Pub/Sub and BigQuery clients. They
// are only needed for the optional archive, inbox and usage features.
func (c *ServiceClients) initGoogleCloud(ctx context.Context, config *Config) {
	project := config.Application.GoogleProjectId
	if config.Storage.ArchiveBucket != "" || config.Storage.InboxBucket != "" {
		sc, err := storage.NewClient(ctx)
		if err != nil {
			slog.WarnContext(ctx, "error creating storage client", slog.Any("error", err))
		} else {
			c.StorageClient = sc
		}
	}
	if project == "" {
		if len(config.TopicSubscriptions) > 0 || config.BigQueryDataSource.DatasetName != "" {
			slog.WarnContext(ctx, "GOOGLE_CLOUD_PROJECT is not set; Pub/Sub listeners and the usage ledger are disabled")
		}
		return
	}

	if len(config.TopicSubscriptions) > 0 {
		pc, err := pubsub.NewClient(ctx, project)
		if err != nil {
			slog.WarnContext(ctx, "error creating pubsub client", slog.Any("error", err))
		} else {
			c.PubsubClient = pc
			for subKey, values := range config.TopicSubscriptions {
				listener, err := NewPubSubListener(pc, values.Name, nil)
				if err != nil {
					slog.WarnContext(ctx, "error creating listener", slog.String("subscription", values.Name), slog.Any("error", err))
					continue
				}
				c.PubSubListeners[subKey] = listener
			}
		}
	}

	if config.BigQueryDataSource.DatasetName != "" && config.BigQueryDataSource.UsageTable != "" {
		bc, err := bigquery.NewClient(ctx, project)
		if err != nil {
			slog.WarnContext(ctx, "error creating bigquery client", slog.Any("error", err))
			return
		}
		c.BiqQueryClient = bc
		c.Ledger = &BigQueryLedger{
			Client:  bc,
			Dataset: config.BigQueryDataSource.DatasetName,
			Table:   config.BigQueryDataSource.UsageTable,
		}
	}
}

// UnavailableStore stands in for a backend that could not be created. Every
// call fails with the creation error.
type UnavailableStore struct {
	Backend string
	Err     error
}

func (s *UnavailableStore) Name() string {
	return s.Backend
}

func (s *UnavailableStore) Insert(context.Context, *model.DocumentChunk) error {
	return s.Err
}

func (s *UnavailableStore) Match(context.Context, []float32, float64, int) ([]model.Match, error) {
	return nil, s.Err
}

func (s *UnavailableStore) Close() error {
	return nil
}
