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

package workflow

import (
	"cloud.google.com/go/storage"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/commands"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// IngestionDeps are the collaborators shared by the upload and inbox
// ingestion workflows. StorageClient may be nil, which disables both the
// archive and the inbox.
type IngestionDeps struct {
	StorageClient *storage.Client
	Images        commands.ImageTextReader
	Sink          commands.ChunkSink
	Ledger        cloud.UsageLedger
}

// DocumentIngestionWorkflow indexes a document uploaded over HTTP.
//
// Context in:  commands.KeyDocument (*model.Document with Name and Data), commands.KeyUsage.
// Context out: commands.KeyIngestResult (*model.IngestResult).
type DocumentIngestionWorkflow struct {
	cor.BaseCommand
	config *cloud.Config
	deps   IngestionDeps
	chain  cor.Chain
}

func (w *DocumentIngestionWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(commands.KeyDocument) != nil && context.Get(commands.KeyUsage) != nil
}

func (w *DocumentIngestionWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// ingestionSteps returns the steps from raw bytes to stored chunks.
func ingestionSteps(chain cor.Chain, config *cloud.Config, deps IngestionDeps) cor.Chain {
	chain.AddCommand(commands.NewDocumentTypeDetector("document-type-detector"))
	chain.AddCommand(commands.NewDocumentArchive("document-archive", deps.StorageClient, config.Storage.ArchiveBucket))
	chain.AddCommand(commands.NewDocumentTextExtractor("document-text-extractor", deps.Images))
	chain.AddCommand(commands.NewDocumentChunker("document-chunker",
		config.Ingestion.ChunkSize, config.Ingestion.ChunkOverlap, config.Ingestion.MinChunkChars))
	chain.AddCommand(commands.NewChunkIndexer("chunk-indexer", deps.Sink))
	return chain
}

func NewDocumentIngestionWorkflow(config *cloud.Config, deps IngestionDeps) *DocumentIngestionWorkflow {
	w := &DocumentIngestionWorkflow{
		BaseCommand: *cor.NewBaseCommand("document-ingestion-workflow"),
		config:      config,
		deps:        deps,
	}
	steps := ingestionSteps(cor.NewBaseChain(w.GetName()+"-steps"), config, deps)
	w.chain = withUsage(w.GetName(), steps, deps.Ledger)
	return w
}

// DocumentInboxWorkflow indexes an object finalized in the inbox bucket. It
// is driven by the Pub/Sub listener, which puts the notification JSON under
// cor.CtxIn.
type DocumentInboxWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func (w *DocumentInboxWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(cor.CtxIn) != nil
}

// Execute adds a usage record when the listener did not provide one.
func (w *DocumentInboxWorkflow) Execute(context cor.Context) {
	if context.Get(commands.KeyUsage) == nil {
		context.Add(commands.KeyUsage, newIngestUsage())
	}
	w.chain.Execute(context)
}

func newIngestUsage() *model.UsageRecord {
	return model.NewUsageRecord(model.OperationIngest, "")
}

func NewDocumentInboxWorkflow(config *cloud.Config, deps IngestionDeps) *DocumentInboxWorkflow {
	w := &DocumentInboxWorkflow{BaseCommand: *cor.NewBaseCommand("document-inbox-workflow")}
	steps := cor.NewBaseChain(w.GetName() + "-steps")
	steps.AddCommand(commands.NewDocumentTriggerToGCSObject("document-trigger-to-gcs-object"))
	steps.AddCommand(commands.NewGCSToDocument("gcs-to-document", deps.StorageClient, config.Ingestion.MaxUploadBytes))
	ingestionSteps(steps, config, deps)
	w.chain = withUsage(w.GetName(), steps, deps.Ledger)
	return w
}
