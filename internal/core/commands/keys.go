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

// Package commands contains the individual steps of the repurpose and
// document ingestion workflows. Each command embeds cor.BaseCommand and
// exchanges data with the other steps through the keys declared here.
package commands

import (
	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// Context keys shared by the repurpose commands.
const (
	KeyRequest    = "__REPURPOSE_REQUEST__" // *model.RepurposeRequest
	KeyVideo      = "__VIDEO_REF__"         // model.VideoReference
	KeyTranscript = "__TRANSCRIPT__"        // *model.TranscriptResult
	KeyEnrichment = "__ENRICHMENT__"        // *metadata.Pending
	KeyPrompt     = "__PROMPT__"            // string
	KeyContent    = "__CONTENT__"           // *model.StructuredContent
	KeyAttempts   = "__ATTEMPTS__"          // []model.GenerationAttempt
)

// Context keys shared by the ingestion commands.
const (
	KeyDocument     = "__DOCUMENT__"      // *model.Document
	KeyChunks       = "__CHUNKS__"        // []*model.DocumentChunk
	KeyIngestResult = "__INGEST_RESULT__" // *model.IngestResult
)

// KeyUsage holds the *model.UsageRecord of the current run.
const KeyUsage = "__USAGE__"

// usageOf returns the run's usage record, or a throwaway record when the
// caller did not provide one.
func usageOf(context cor.Context) *model.UsageRecord {
	if record, ok := context.Get(KeyUsage).(*model.UsageRecord); ok && record != nil {
		return record
	}
	return &model.UsageRecord{}
}

// gcsObjectOf returns the inbox object being ingested, if any.
func gcsObjectOf(context cor.Context) *cloud.GCSObject {
	obj, _ := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)
	return obj
}
