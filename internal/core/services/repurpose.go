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

// Package services holds the request-level operations behind the HTTP
// handlers, the listeners and the CLI. Each service builds a chain context,
// runs a workflow or calls the providers directly, and turns the outcome into
// a value or a classified error.
package services

import (
	"context"
	"strings"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/commands"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/workflow"
)

// RepurposeService turns a video, or pasted text, into structured content.
type RepurposeService struct {
	Workflow *workflow.RepurposeWorkflow
}

// Repurpose runs the repurpose workflow for req.
func (s *RepurposeService) Repurpose(ctx context.Context, req *model.RepurposeRequest) (*model.StructuredContent, error) {
	if req == nil || (strings.TrimSpace(req.URL) == "" && req.Text == "") {
		return nil, apperr.New(apperr.InvalidInput, "a video URL or a text is required")
	}
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	defer chCtx.Close()
	chCtx.Add(commands.KeyRequest, req)
	chCtx.Add(commands.KeyUsage, model.NewUsageRecord(model.OperationRepurpose, ""))

	s.Workflow.Execute(chCtx)
	if err := chCtx.FirstError(); err != nil {
		return nil, err
	}
	content, ok := chCtx.Get(commands.KeyContent).(*model.StructuredContent)
	if !ok {
		return nil, apperr.New(apperr.Internal, "the repurpose workflow produced no content")
	}
	return content, nil
}
