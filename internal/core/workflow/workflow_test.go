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

package workflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/commands"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/workflow"
	test "github.com/wrapperai/wrapper-ai/internal/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type stubAcquirer struct {
	text  string
	err   error
	calls int
}

func (s *stubAcquirer) Acquire(context.Context, model.VideoReference) (*model.TranscriptResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return model.NewTranscriptResult(s.text, model.StrategyCaptionAPI), nil
}

type stubImages struct {
	text string
}

func (s stubImages) ExtractText(context.Context, []byte, string) (string, error) {
	return s.text, nil
}

func validContent() string {
	return model.ExampleJSON(model.GetExampleStructuredContent())
}

func runRepurpose(t *testing.T, w *workflow.RepurposeWorkflow, req model.RepurposeRequest) cor.Context {
	t.Helper()
	chCtx, _ := test.NewChainContext(context.Background(), commands.KeyUsage, model.OperationRepurpose)
	chCtx.Add(commands.KeyRequest, &req)
	require.True(t, w.IsExecutable(chCtx))
	w.Execute(chCtx)
	return chCtx
}

func TestRepurposeWorkflowSteps(t *testing.T) {
	w, err := workflow.NewRepurposeWorkflow(cloud.NewConfig(), &stubAcquirer{}, nil, test.NewNoWaitClient(nil, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"video-reference-resolver",
		"transcript-acquisition",
		"prompt-assembler",
		"structured-content-generator",
	}, w.Steps())
}

func TestRepurposeWorkflowFromURL(t *testing.T) {
	acquirer := &stubAcquirer{text: "Aujourd'hui on parle de relances commerciales."}
	primary := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: validContent()}}}
	ledger := &test.RecordingLedger{}
	w, err := workflow.NewRepurposeWorkflow(cloud.NewConfig(), acquirer, nil, test.NewNoWaitClient(primary, nil), ledger)
	require.NoError(t, err)

	chCtx := runRepurpose(t, w, model.RepurposeRequest{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})

	require.False(t, chCtx.HasErrors(), "%v", chCtx.GetErrors())
	assert.Equal(t, model.GetExampleStructuredContent(), chCtx.Get(commands.KeyContent))
	assert.Equal(t, 1, acquirer.calls)
	require.Len(t, primary.Requests, 1)
	assert.Contains(t, primary.Requests[0].Prompt, "relances commerciales")

	record, ok := ledger.Last()
	require.True(t, ok)
	assert.True(t, record.Succeeded)
	assert.Equal(t, model.OperationRepurpose, record.Operation)
	assert.Equal(t, "dQw4w9WgXcQ", record.Subject)
	assert.Equal(t, string(model.StrategyCaptionAPI), record.Strategy)
}

func TestRepurposeWorkflowManualTextSkipsAcquisition(t *testing.T) {
	acquirer := &stubAcquirer{text: "unused"}
	primary := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: validContent()}}}
	w, err := workflow.NewRepurposeWorkflow(cloud.NewConfig(), acquirer, nil, test.NewNoWaitClient(primary, nil), nil)
	require.NoError(t, err)

	chCtx := runRepurpose(t, w, model.RepurposeRequest{URL: "https://youtu.be/dQw4w9WgXcQ", Text: "Mon texte collé"})

	require.False(t, chCtx.HasErrors())
	assert.Equal(t, 0, acquirer.calls)
	assert.Contains(t, primary.Requests[0].Prompt, "Mon texte collé")
}

func TestRepurposeWorkflowRecordsFailure(t *testing.T) {
	acquirer := &stubAcquirer{err: apperr.New(apperr.TranscriptUnavailable, "no captions")}
	primary := &test.ScriptedProvider{ProviderName: "gemini"}
	ledger := &test.RecordingLedger{}
	w, err := workflow.NewRepurposeWorkflow(cloud.NewConfig(), acquirer, nil, test.NewNoWaitClient(primary, nil), ledger)
	require.NoError(t, err)

	chCtx := runRepurpose(t, w, model.RepurposeRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})

	assert.True(t, apperr.Is(chCtx.FirstError(), apperr.TranscriptUnavailable))
	assert.Equal(t, 0, primary.Calls())
	record, ok := ledger.Last()
	require.True(t, ok)
	assert.False(t, record.Succeeded)
	assert.Equal(t, "TranscriptUnavailable", record.ErrorKind)
}

func TestRepurposeWorkflowFallsBackToSecondary(t *testing.T) {
	acquirer := &stubAcquirer{text: "transcript"}
	primary := &test.ScriptedProvider{ProviderName: "gemini", Replies: []test.Reply{{Text: "not json at all"}}}
	secondary := &test.ScriptedProvider{ProviderName: "groq", Replies: []test.Reply{{Text: validContent()}}}
	ledger := &test.RecordingLedger{}
	w, err := workflow.NewRepurposeWorkflow(cloud.NewConfig(), acquirer, nil, test.NewNoWaitClient(primary, secondary), ledger)
	require.NoError(t, err)

	chCtx := runRepurpose(t, w, model.RepurposeRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})

	require.False(t, chCtx.HasErrors())
	assert.Equal(t, 1, secondary.Calls())
	record, _ := ledger.Last()
	assert.Equal(t, string(model.ProviderSecondary), record.Provider)
	assert.Equal(t, 2, record.Attempts)
}

func newIngestion(t *testing.T, store *test.MemoryStore, images string) (*workflow.DocumentIngestionWorkflow, *workflow.IndexingQueue, *test.RecordingLedger) {
	t.Helper()
	config := cloud.NewConfig()
	config.Ingestion.RequestsPerSecond = 0
	queue := workflow.NewIndexingQueue(&test.HashEmbedder{}, store, config.Ingestion)
	queue.Start()
	t.Cleanup(queue.Stop)
	ledger := &test.RecordingLedger{}
	w := workflow.NewDocumentIngestionWorkflow(config, workflow.IngestionDeps{
		Images: stubImages{text: images},
		Sink:   queue,
		Ledger: ledger,
	})
	return w, queue, ledger
}

func TestDocumentIngestionWorkflowIndexesImageText(t *testing.T) {
	store := &test.MemoryStore{}
	w, _, ledger := newIngestion(t, store, strings.Repeat("Le cahier des charges impose une livraison en mars. ", 40))

	chCtx, _ := test.NewChainContext(context.Background(), commands.KeyUsage, model.OperationIngest)
	chCtx.Add(commands.KeyDocument, &model.Document{Name: "scan.png", Data: pngHeader})
	w.Execute(chCtx)

	require.False(t, chCtx.HasErrors(), "%v", chCtx.GetErrors())
	result := chCtx.Get(commands.KeyIngestResult).(*model.IngestResult)
	assert.Equal(t, "scan.png", result.Filename)
	assert.Equal(t, result.Chunks, result.Saved)
	assert.Equal(t, result.Saved, store.Len())
	assert.Greater(t, result.Saved, 1)
	for _, chunk := range store.Chunks {
		assert.Equal(t, "image/png", chunk.Metadata[model.MetadataMIMEType])
		assert.NotEmpty(t, chunk.Embedding)
	}
	record, _ := ledger.Last()
	assert.True(t, record.Succeeded)
	assert.Equal(t, result.Saved, record.Items)
}

func TestDocumentIngestionWorkflowRejectsUnknownFiles(t *testing.T) {
	store := &test.MemoryStore{}
	w, _, ledger := newIngestion(t, store, "unused")

	chCtx, _ := test.NewChainContext(context.Background(), commands.KeyUsage, model.OperationIngest)
	chCtx.Add(commands.KeyDocument, &model.Document{Name: "notes.txt", Data: []byte("plain text notes")})
	w.Execute(chCtx)

	assert.True(t, apperr.Is(chCtx.FirstError(), apperr.InvalidInput))
	assert.Equal(t, 0, store.Len())
	record, _ := ledger.Last()
	assert.Equal(t, "InvalidInput", record.ErrorKind)
}

func TestDocumentIngestionWorkflowStoreAuthFailure(t *testing.T) {
	store := &test.MemoryStore{InsertErr: apperr.New(apperr.StoreAuthError, "invalid api key")}
	w, _, _ := newIngestion(t, store, strings.Repeat("Réponse technique détaillée. ", 100))

	chCtx, _ := test.NewChainContext(context.Background(), commands.KeyUsage, model.OperationIngest)
	chCtx.Add(commands.KeyDocument, &model.Document{Name: "scan.png", Data: pngHeader})
	w.Execute(chCtx)

	assert.True(t, apperr.Is(chCtx.FirstError(), apperr.StoreAuthError))
}

func TestDocumentInboxWorkflowRejectsBadNotification(t *testing.T) {
	ledger := &test.RecordingLedger{}
	w := workflow.NewDocumentInboxWorkflow(cloud.NewConfig(), workflow.IngestionDeps{Ledger: ledger})

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, "{not json")
	require.True(t, w.IsExecutable(chCtx))
	w.Execute(chCtx)

	assert.True(t, apperr.Is(chCtx.FirstError(), apperr.InvalidInput))
	record, ok := ledger.Last()
	require.True(t, ok)
	assert.Equal(t, model.OperationIngest, record.Operation)
	assert.False(t, record.Succeeded)
}

func TestIndexingQueueStoresChunks(t *testing.T) {
	store := &test.MemoryStore{}
	embedder := &test.HashEmbedder{Dimensions: 8}
	queue := workflow.NewIndexingQueue(embedder, store, cloud.Ingestion{RequestsPerSecond: 1000, Burst: 10, Concurrency: 2, QueueSize: 4})
	queue.Start()
	defer queue.Stop()

	doc := &model.Document{Name: "a.pdf"}
	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Index(context.Background(), model.NewDocumentChunk(doc, i, "texte numéro")))
	}
	assert.Equal(t, 5, store.Len())
	assert.Len(t, store.Chunks[0].Embedding, 8)
}

func TestIndexingQueueReportsEmbeddingErrors(t *testing.T) {
	embedder := &test.HashEmbedder{Err: apperr.New(apperr.QuotaExceeded, "quota")}
	queue := workflow.NewIndexingQueue(embedder, &test.MemoryStore{}, cloud.Ingestion{})
	queue.Start()
	defer queue.Stop()

	err := queue.Index(context.Background(), model.NewDocumentChunk(&model.Document{}, 0, "x"))
	assert.True(t, apperr.Is(err, apperr.QuotaExceeded))
}

func TestIndexingQueueHonoursContext(t *testing.T) {
	// Not started: nothing ever consumes the job.
	queue := workflow.NewIndexingQueue(&test.HashEmbedder{}, &test.MemoryStore{}, cloud.Ingestion{QueueSize: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := queue.Index(ctx, model.NewDocumentChunk(&model.Document{}, 0, "x"))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestIndexingQueueAfterStop(t *testing.T) {
	queue := workflow.NewIndexingQueue(&test.HashEmbedder{}, &test.MemoryStore{}, cloud.Ingestion{})
	queue.Start()
	queue.Stop()
	queue.Stop()

	err := queue.Index(context.Background(), model.NewDocumentChunk(&model.Document{}, 0, "x"))
	assert.ErrorIs(t, err, workflow.ErrQueueStopped)
}
