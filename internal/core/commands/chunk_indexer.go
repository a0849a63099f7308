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

package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// ChunkSink embeds and stores a single chunk.
type ChunkSink interface {
	Index(ctx context.Context, chunk *model.DocumentChunk) error
}

// abortsIndexing reports whether err makes every later chunk fail as well.
func abortsIndexing(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch apperr.KindOf(err) {
	case apperr.QuotaExceeded, apperr.StoreAuthError, apperr.ConfigurationMissing:
		return true
	}
	return false
}

// ChunkIndexer sends the chunks to the sink one at a time. A chunk that
// fails is logged and skipped. The document fails when nothing was saved,
// or as soon as a failure would repeat for every chunk (quota, store
// credentials, missing configuration, cancellation), even if earlier chunks
// were saved.
//
// Inputs:  KeyChunks ([]*model.DocumentChunk), KeyDocument (optional), KeyUsage.
// Outputs: KeyIngestResult (*model.IngestResult), set on failure as well.
type ChunkIndexer struct {
	cor.BaseCommand
	sink ChunkSink
}

func NewChunkIndexer(name string, sink ChunkSink) *ChunkIndexer {
	out := &ChunkIndexer{BaseCommand: *cor.NewBaseCommand(name), sink: sink}
	out.InputParamName = KeyChunks
	return out
}

func (c *ChunkIndexer) Execute(context cor.Context) {
	chunks := context.Get(c.GetInputParam()).([]*model.DocumentChunk)
	ctx := context.GetContext()
	doc, _ := context.Get(KeyDocument).(*model.Document)

	result := &model.IngestResult{Chunks: len(chunks)}
	if doc != nil {
		result.Filename = doc.Name
	}
	context.Add(KeyIngestResult, result)
	usage := usageOf(context)

	var lastErr, aborted error
	for _, chunk := range chunks {
		err := c.sink.Index(ctx, chunk)
		if err == nil {
			result.Saved++
			continue
		}
		result.Failed++
		lastErr = err
		slog.WarnContext(ctx, "chunk not indexed",
			slog.String("document", result.Filename), slog.Any("chunk_index", chunk.Metadata[model.MetadataChunkIndex]), slog.Any("error", err))
		if abortsIndexing(err) {
			result.Failed = result.Chunks - result.Saved
			aborted = err
			break
		}
	}
	usage.Items = result.Saved

	switch {
	case aborted != nil:
		slog.WarnContext(ctx, "document indexing aborted",
			slog.String("document", result.Filename), slog.Int("saved", result.Saved), slog.Any("error", aborted))
		c.Fail(context, aborted)
	case len(chunks) == 0:
		c.Fail(context, apperr.Newf(apperr.NoExtractableText, "%s produced no chunk long enough to index", result.Filename))
	case result.Saved == 0:
		if lastErr != nil && apperr.KindOf(lastErr) != apperr.Internal {
			c.Fail(context, lastErr)
			return
		}
		c.Fail(context, apperr.Wrap(apperr.PersistenceFailure, lastErr, "no chunk could be saved"))
	default:
		slog.InfoContext(ctx, "document indexed",
			slog.String("document", result.Filename), slog.Int("saved", result.Saved), slog.Int("failed", result.Failed))
		c.Succeed(context, result)
	}
}
