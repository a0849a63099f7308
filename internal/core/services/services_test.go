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

package services_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/services"
	"github.com/wrapperai/wrapper-ai/internal/core/workflow"
	test "github.com/wrapperai/wrapper-ai/internal/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type stubImages struct {
	text string
}

func (s stubImages) ExtractText(context.Context, []byte, string) (string, error) {
	return s.text, nil
}

func seed(t *testing.T, store *test.MemoryStore, embedder *test.HashEmbedder, filename string, contents ...string) {
	t.Helper()
	doc := &model.Document{Name: filename, MIMEType: "application/pdf", PageCount: 1}
	for i, content := range contents {
		chunk := model.NewDocumentChunk(doc, i, content)
		embedding, err := embedder.Embed(context.Background(), content)
		require.NoError(t, err)
		chunk.Embedding = embedding
		require.NoError(t, store.Insert(context.Background(), chunk))
	}
}

func newRag(t *testing.T, primary generation.Provider, ledger cloud.UsageLedger) (*services.RagService, *test.MemoryStore) {
	t.Helper()
	embedder := &test.HashEmbedder{Dimensions: 1024}
	store := &test.MemoryStore{}
	seed(t, store, embedder, "cahier.pdf",
		"Le délai de livraison du marché est de 30 jours.",
		"Le délai de livraison du marché peut être prolongé.")
	seed(t, store, embedder, "annexe.pdf", "Pénalités si le délai de livraison du marché est dépassé.")
	seed(t, store, embedder, "factures.pdf", "Facturation trimestrielle des prestations annexes.")

	rag, err := services.NewRagService(cloud.NewConfig(), embedder, store, test.NewNoWaitClient(primary, nil), ledger)
	require.NoError(t, err)
	return rag, store
}

func TestRepurposeServiceManualText(t *testing.T) {
	primary := &test.ScriptedProvider{ProviderName: "gemini",
		Replies: []test.Reply{{Text: model.ExampleJSON(model.GetExampleStructuredContent())}}}
	ledger := &test.RecordingLedger{}
	w, err := workflow.NewRepurposeWorkflow(cloud.NewConfig(), nil, nil, test.NewNoWaitClient(primary, nil), ledger)
	require.NoError(t, err)
	svc := &services.RepurposeService{Workflow: w}

	content, err := svc.Repurpose(context.Background(), &model.RepurposeRequest{Text: "Un texte collé à la main."})

	require.NoError(t, err)
	assert.Equal(t, model.GetExampleStructuredContent(), content)
	record, ok := ledger.Last()
	require.True(t, ok)
	assert.True(t, record.Succeeded)
	assert.Equal(t, model.OperationRepurpose, record.Operation)
}

func TestRepurposeServiceRejectsEmptyRequest(t *testing.T) {
	w, err := workflow.NewRepurposeWorkflow(cloud.NewConfig(), nil, nil, test.NewNoWaitClient(nil, nil), nil)
	require.NoError(t, err)
	svc := &services.RepurposeService{Workflow: w}

	_, err = svc.Repurpose(context.Background(), &model.RepurposeRequest{URL: "  "})
	assert.True(t, apperr.Is(err, apperr.InvalidInput))

	_, err = svc.Repurpose(context.Background(), &model.RepurposeRequest{Text: "   "})
	assert.True(t, apperr.Is(err, apperr.EmptyContent))
}

func TestIngestServiceIndexesImage(t *testing.T) {
	config := cloud.NewConfig()
	config.Ingestion.RequestsPerSecond = 0
	embedder := &test.HashEmbedder{}
	store := &test.MemoryStore{}
	queue := workflow.NewIndexingQueue(embedder, store, config.Ingestion)
	queue.Start()
	defer queue.Stop()
	ledger := &test.RecordingLedger{}

	svc := &services.IngestService{Workflow: workflow.NewDocumentIngestionWorkflow(config, workflow.IngestionDeps{
		Images: stubImages{text: strings.Repeat("Dossier de consultation des entreprises. ", 3)},
		Sink:   queue,
		Ledger: ledger,
	})}

	result, err := svc.Ingest(context.Background(), "scan.png", pngHeader)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, "scan.png", store.Chunks[0].Metadata[model.MetadataFilename])
	record, ok := ledger.Last()
	require.True(t, ok)
	assert.Equal(t, "scan.png", record.Subject)
	assert.Equal(t, 1, record.Items)
}

func TestIngestServiceRejectsEmptyFile(t *testing.T) {
	svc := &services.IngestService{Workflow: workflow.NewDocumentIngestionWorkflow(cloud.NewConfig(), workflow.IngestionDeps{})}
	_, err := svc.Ingest(context.Background(), "empty.pdf", nil)
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
}

func TestChatAnswersFromMatchingDocuments(t *testing.T) {
	primary := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: "Le délai est de 30 jours."}}}
	ledger := &test.RecordingLedger{}
	rag, _ := newRag(t, primary, ledger)

	answer, err := rag.Chat(context.Background(), "Quel est le délai de livraison du marché ?")

	require.NoError(t, err)
	assert.Equal(t, "Le délai est de 30 jours.", answer.Answer)
	assert.ElementsMatch(t, []string{"cahier.pdf", "annexe.pdf"}, answer.Sources)

	require.Len(t, primary.Requests, 1)
	system := primary.Requests[0].System
	assert.Contains(t, system, "30 jours")
	assert.Contains(t, system, services.ContextSeparator)
	assert.NotContains(t, system, "Facturation")
	assert.Contains(t, primary.Requests[0].Prompt, "Quel est le délai")
	assert.False(t, primary.Requests[0].JSON)

	record, ok := ledger.Last()
	require.True(t, ok)
	assert.Equal(t, model.OperationChat, record.Operation)
	assert.Equal(t, 3, record.Items)
	assert.True(t, record.Succeeded)
}

func TestChatRejectsBlankMessage(t *testing.T) {
	primary := &test.ScriptedProvider{ProviderName: "gemini"}
	rag, _ := newRag(t, primary, nil)

	_, err := rag.Chat(context.Background(), "  ")

	assert.True(t, apperr.Is(err, apperr.InvalidInput))
	assert.Equal(t, 0, primary.Calls())
}

func TestRetrieveClassifiesStoreErrors(t *testing.T) {
	rag, store := newRag(t, &test.ScriptedProvider{ProviderName: "gemini"}, nil)
	store.MatchErr = errors.New("connection reset")

	_, err := rag.Retrieve(context.Background(), "délai")
	assert.True(t, apperr.Is(err, apperr.PersistenceFailure))

	store.MatchErr = apperr.New(apperr.StoreAuthError, "invalid key")
	_, err = rag.Retrieve(context.Background(), "délai")
	assert.True(t, apperr.Is(err, apperr.StoreAuthError))
}

func TestRetrieveWithoutMatches(t *testing.T) {
	rag, _ := newRag(t, &test.ScriptedProvider{ProviderName: "gemini"}, nil)

	found, err := rag.Retrieve(context.Background(), "météo")

	require.NoError(t, err)
	assert.Empty(t, found.Context)
	assert.NotNil(t, found.Sources)
	assert.Empty(t, found.Sources)
}

func TestToolGenerate(t *testing.T) {
	reply := "```json\n" + model.ExampleJSON(model.GetExampleToolConfig()) + "\n```"
	primary := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: reply}}}
	svc, err := services.NewToolService(cloud.NewConfig(), test.NewNoWaitClient(primary, nil), nil, nil)
	require.NoError(t, err)

	tool, err := svc.Generate(context.Background(), "Un générateur de relances clients")

	require.NoError(t, err)
	assert.Equal(t, model.GetExampleToolConfig(), tool)
	require.Len(t, primary.Requests, 1)
	assert.True(t, primary.Requests[0].JSON)
	assert.Contains(t, primary.Requests[0].Prompt, "Un générateur de relances clients")
	assert.Contains(t, primary.Requests[0].Prompt, "{{nom_variable}}")

	_, err = svc.Generate(context.Background(), "")
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
}

func TestFillTemplate(t *testing.T) {
	out := services.FillTemplate("Écris à {{name}} ({{count}} fois) sur {{topic}}. {{name}} !",
		map[string]any{"name": "Alice", "count": 3, "topic": nil})
	assert.Equal(t, "Écris à Alice (3 fois) sur . Alice !", out)
}

func TestToolRun(t *testing.T) {
	primary := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: "Bonjour Alice"}}}
	svc, err := services.NewToolService(cloud.NewConfig(), test.NewNoWaitClient(primary, nil), nil, nil)
	require.NoError(t, err)

	result, err := svc.Run(context.Background(), &model.ToolRunRequest{
		PromptTemplate: "Rédige un email pour {{targetName}}.",
		Inputs:         map[string]any{"targetName": "Alice"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Bonjour Alice", result.Result)
	assert.Nil(t, result.Sources)
	assert.Equal(t, "Rédige un email pour Alice.", primary.Requests[0].Prompt)

	_, err = svc.Run(context.Background(), &model.ToolRunRequest{PromptTemplate: "x"})
	assert.True(t, apperr.Is(err, apperr.InvalidInput))

	_, err = svc.Run(context.Background(), &model.ToolRunRequest{PromptTemplate: "x", Inputs: map[string]any{}, UseDocuments: true})
	assert.True(t, apperr.Is(err, apperr.ConfigurationMissing))
}

func TestToolRunWithDocuments(t *testing.T) {
	primary := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: "Résumé"}}}
	rag, _ := newRag(t, primary, nil)
	svc, err := services.NewToolService(cloud.NewConfig(), rag.Client, rag, nil)
	require.NoError(t, err)

	result, err := svc.Run(context.Background(), &model.ToolRunRequest{
		PromptTemplate: "Résume le {{sujet}}",
		Inputs:         map[string]any{"sujet": "délai de livraison du marché"},
		UseDocuments:   true,
	})

	require.NoError(t, err)
	assert.Equal(t, "Résumé", result.Result)
	assert.ElementsMatch(t, []string{"cahier.pdf", "annexe.pdf"}, result.Sources)
	prompt := primary.Requests[0].Prompt
	assert.True(t, strings.HasPrefix(prompt, "Contexte documentaire"))
	assert.True(t, strings.HasSuffix(prompt, "Résume le délai de livraison du marché"))
}

func TestHealthCheck(t *testing.T) {
	ok := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: "pong"}}}
	missing := generation.Unconfigured{ProviderName: "groq", Setting: cloud.EnvGroqAPIKey}
	svc := &services.HealthService{Providers: []generation.Provider{ok, missing}}

	report, code := svc.Check(context.Background())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, services.StatusOperational, report.Status)
	assert.Equal(t, map[string]string{"gemini": services.ProviderOK, "groq": services.ProviderNotConfigured}, report.Providers)
	assert.Equal(t, "ping", ok.Requests[0].Prompt)
}

func TestHealthCheckDown(t *testing.T) {
	failing := &test.ScriptedProvider{ProviderName: "gemini",
		Replies: []test.Reply{{Err: apperr.New(apperr.QuotaExceeded, "quota exceeded")}}}
	missing := generation.Unconfigured{ProviderName: "groq", Setting: cloud.EnvGroqAPIKey}
	svc := &services.HealthService{Providers: []generation.Provider{failing, missing}}

	report, code := svc.Check(context.Background())

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, services.StatusDown, report.Status)
	assert.Equal(t, "error: quota exceeded", report.Providers["gemini"])
}

func TestHealthCheckHidesProviderErrors(t *testing.T) {
	failing := &test.ScriptedProvider{ProviderName: "gemini",
		Replies: []test.Reply{{Err: errors.New("POST https://generativelanguage.googleapis.com/v1?key=AIzaSecret: connection reset")}}}
	svc := &services.HealthService{Providers: []generation.Provider{failing}}

	report, code := svc.Check(context.Background())

	assert.Equal(t, http.StatusServiceUnavailable, code)
	status := report.Providers["gemini"]
	assert.True(t, strings.HasPrefix(status, "error: "))
	assert.NotContains(t, status, "AIzaSecret")
	assert.NotContains(t, status, "googleapis.com")
}

func TestHealthCheckSkipped(t *testing.T) {
	p := &test.ScriptedProvider{ProviderName: "gemini"}
	svc := &services.HealthService{Providers: []generation.Provider{p}, Skip: true}

	report, code := svc.Check(context.Background())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, services.ProviderSkipped, report.Providers["gemini"])
	assert.Equal(t, 0, p.Calls())
}

func TestUsageStatsRequiresBigQuery(t *testing.T) {
	svc := &services.UsageService{}

	_, err := svc.Stats(context.Background(), 0)
	assert.True(t, apperr.Is(err, apperr.ConfigurationMissing))

	_, err = svc.Stats(context.Background(), services.MaxStatsDays+1)
	assert.True(t, apperr.Is(err, apperr.InvalidInput))
}
