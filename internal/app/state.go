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

// Package app assembles the services from the configuration and the cloud
// clients. The HTTP server and the command line tool share it so both run
// the same pipelines.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/wrapperai/wrapper-ai/internal/api"
	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/commands"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/metadata"
	"github.com/wrapperai/wrapper-ai/internal/core/services"
	"github.com/wrapperai/wrapper-ai/internal/core/transcript"
	"github.com/wrapperai/wrapper-ai/internal/core/workflow"
)

// StateManager holds the shared components of a running process.
type StateManager struct {
	Config *cloud.Config
	Cloud  *cloud.ServiceClients
	Queue  *workflow.IndexingQueue
	Inbox  *workflow.DocumentInboxWorkflow

	Repurpose *services.RepurposeService
	Ingest    *services.IngestService
	Rag       *services.RagService
	Tools     *services.ToolService
	Health    *services.HealthService
	Usage     *services.UsageService
}

// InitState creates the cloud clients and the services.
func InitState(ctx context.Context, config *cloud.Config) (*StateManager, error) {
	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return nil, err
	}
	state, err := NewStateManager(config, clients)
	if err != nil {
		clients.Close()
		return nil, err
	}
	return state, nil
}

// NewStateManager builds the services on top of existing clients. It does
// no I/O; the indexing queue is created but not started.
func NewStateManager(config *cloud.Config, clients *cloud.ServiceClients) (*StateManager, error) {
	client := NewGenerationClient(config, clients)
	state := &StateManager{
		Config: config,
		Cloud:  clients,
		Queue:  workflow.NewIndexingQueue(clients.Embedder, clients.Store, config.Ingestion),
		Health: &services.HealthService{
			Providers: []generation.Provider{clients.Primary, clients.Secondary},
			Skip:      config.Application.SkipHealthCheck,
			Timeout:   30 * time.Second,
		},
		Usage: &services.UsageService{
			BigqueryClient: clients.BiqQueryClient,
			DatasetName:    config.BigQueryDataSource.DatasetName,
			UsageTable:     config.BigQueryDataSource.UsageTable,
		},
	}

	repurpose, err := workflow.NewRepurposeWorkflow(config, NewAcquirer(config, clients), NewEnricher(config, clients), client, clients.Ledger)
	if err != nil {
		return nil, err
	}
	state.Repurpose = &services.RepurposeService{Workflow: repurpose}

	var images commands.ImageTextReader
	if clients.ImageReader != nil {
		images = clients.ImageReader
	}
	deps := workflow.IngestionDeps{
		StorageClient: clients.StorageClient,
		Images:        images,
		Sink:          state.Queue,
		Ledger:        clients.Ledger,
	}
	state.Ingest = &services.IngestService{Workflow: workflow.NewDocumentIngestionWorkflow(config, deps)}
	state.Inbox = workflow.NewDocumentInboxWorkflow(config, deps)

	if state.Rag, err = services.NewRagService(config, clients.Embedder, clients.Store, client, clients.Ledger); err != nil {
		return nil, err
	}
	if state.Tools, err = services.NewToolService(config, client, state.Rag, clients.Ledger); err != nil {
		return nil, err
	}
	return state, nil
}

// Handlers returns the HTTP handlers bound to the services.
func (s *StateManager) Handlers() *api.Handlers {
	return &api.Handlers{
		Repurpose:      s.Repurpose,
		Ingest:         s.Ingest,
		Rag:            s.Rag,
		Tools:          s.Tools,
		Health:         s.Health,
		Usage:          s.Usage,
		MaxUploadBytes: s.Config.Ingestion.MaxUploadBytes,
	}
}

// Close stops the indexing queue and releases the clients.
func (s *StateManager) Close() {
	s.Queue.Stop()
	s.Cloud.Close()
}

// NewGenerationClient applies the retry settings to a client over the
// configured providers.
func NewGenerationClient(config *cloud.Config, clients *cloud.ServiceClients) *generation.Client {
	client := generation.NewClient(clients.Primary, clients.Secondary)
	if config.Generation.MaxRetries > 0 {
		client.MaxRetries = config.Generation.MaxRetries
	}
	if config.Generation.BaseDelayMillis > 0 {
		client.BaseDelay = time.Duration(config.Generation.BaseDelayMillis) * time.Millisecond
	}
	if config.Generation.MaxJitterMillis >= 0 {
		client.MaxJitter = time.Duration(config.Generation.MaxJitterMillis) * time.Millisecond
	}
	return client
}

// NewAcquirer returns the transcript strategies in the configured order.
func NewAcquirer(config *cloud.Config, clients *cloud.ServiceClients) *transcript.Acquirer {
	tc := config.Transcript
	acquirer := &transcript.Acquirer{
		Timeout: time.Duration(tc.TimeoutSeconds) * time.Second,
		Logger:  slog.Default(),
	}
	for _, name := range tc.StrategyOrder {
		switch name {
		case cloud.StrategyAudio:
			acquirer.Sources = append(acquirer.Sources, &transcript.AudioSource{
				YtDlp:         tc.YtDlp,
				UserAgent:     tc.UserAgent,
				Proxy:         tc.Proxy,
				CookiesFile:   tc.CookiesFile,
				ExtraArgs:     tc.ExtraArgs,
				FFmpeg:        tc.FFmpeg,
				MaxAudioBytes: tc.MaxAudioBytes,
				Transcriber:   clients.Transcriber,
				Logger:        slog.Default(),
			})
		case cloud.StrategyCaptions:
			acquirer.Sources = append(acquirer.Sources, &transcript.CaptionSource{
				Python:         tc.Python,
				Languages:      tc.Languages,
				MaxOutputBytes: tc.MaxCaptionBytes,
			})
		}
	}
	return acquirer
}

// NewEnricher reads descriptions through the Data API when a key is set and
// through the player data otherwise, with the watch page as the fallback.
func NewEnricher(config *cloud.Config, clients *cloud.ServiceClients) *metadata.Enricher {
	timeout := time.Duration(config.Metadata.TimeoutSeconds) * time.Second
	var primary metadata.Client = &metadata.InnertubeClient{}
	if clients.YouTubeService != nil {
		primary = &metadata.DataAPIClient{Service: clients.YouTubeService}
	}
	return &metadata.Enricher{
		Primary:   primary,
		Secondary: &metadata.WatchPageClient{HTTPClient: &http.Client{Timeout: timeout}},
		Timeout:   timeout,
		Logger:    slog.Default(),
	}
}
