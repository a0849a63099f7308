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

package services

import (
	"context"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/commands"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/workflow"
)

// IngestService indexes uploaded documents.
type IngestService struct {
	Workflow *workflow.DocumentIngestionWorkflow
}

// Ingest extracts, chunks and stores the text of data. The result reports
// how many chunks were saved; chunks that failed for a recoverable reason
// are counted in Failed.
func (s *IngestService) Ingest(ctx context.Context, filename string, data []byte) (*model.IngestResult, error) {
	if len(data) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "no file was provided")
	}
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	defer chCtx.Close()
	chCtx.Add(commands.KeyDocument, &model.Document{Name: filename, Data: data})
	chCtx.Add(commands.KeyUsage, model.NewUsageRecord(model.OperationIngest, filename))

	s.Workflow.Execute(chCtx)
	if err := chCtx.FirstError(); err != nil {
		return nil, err
	}
	result, ok := chCtx.Get(commands.KeyIngestResult).(*model.IngestResult)
	if !ok {
		return nil, apperr.New(apperr.Internal, "the ingestion workflow produced no result")
	}
	return result, nil
}
