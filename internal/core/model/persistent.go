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

package model

import (
	"time"

	"github.com/google/uuid"
)

// Metadata keys written alongside every stored chunk.
const (
	MetadataFilename   = "filename"
	MetadataPageCount  = "page_count"
	MetadataMIMEType   = "mime_type"
	MetadataChunkIndex = "chunk_index"
)

// DocumentChunk is a slice of document text stored in the vector store.
type DocumentChunk struct {
	Id        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// NewDocumentChunk creates a chunk with a random id and the standard metadata.
func NewDocumentChunk(doc *Document, index int, content string) *DocumentChunk {
	return &DocumentChunk{
		Id:      uuid.New().String(),
		Content: content,
		Metadata: map[string]any{
			MetadataFilename:   doc.Name,
			MetadataPageCount:  doc.PageCount,
			MetadataMIMEType:   doc.MIMEType,
			MetadataChunkIndex: index,
		},
	}
}

// Operations recorded in the usage ledger.
const (
	OperationRepurpose    = "repurpose"
	OperationIngest       = "ingest"
	OperationChat         = "chat"
	OperationToolGenerate = "tool_generate"
	OperationToolRun      = "tool_run"
)

// UsageRecord is one row of the usage ledger table in BigQuery.
type UsageRecord struct {
	RequestId  string    `json:"request_id" bigquery:"request_id"`
	Operation  string    `json:"operation" bigquery:"operation"`
	Subject    string    `json:"subject" bigquery:"subject"`
	Strategy   string    `json:"strategy" bigquery:"strategy"`
	Provider   string    `json:"provider" bigquery:"provider"`
	Attempts   int       `json:"attempts" bigquery:"attempts"`
	InputChars int       `json:"input_chars" bigquery:"input_chars"`
	Items      int       `json:"items" bigquery:"items"`
	Succeeded  bool      `json:"succeeded" bigquery:"succeeded"`
	ErrorKind  string    `json:"error_kind" bigquery:"error_kind"`
	CreateDate time.Time `json:"create_date" bigquery:"create_date"`
}

// NewUsageRecord creates a ledger row stamped with a fresh request id and the
// current time.
func NewUsageRecord(operation string, subject string) *UsageRecord {
	return &UsageRecord{
		RequestId:  uuid.New().String(),
		Operation:  operation,
		Subject:    subject,
		CreateDate: time.Now(),
	}
}

// LastProvider returns the provider of the final attempt, or an empty string.
func LastProvider(attempts []GenerationAttempt) string {
	if len(attempts) == 0 {
		return ""
	}
	return string(attempts[len(attempts)-1].Provider)
}
