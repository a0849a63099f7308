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
	"fmt"
	"sort"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/parser"
)

// ToolService generates no-code tool definitions and runs them.
type ToolService struct {
	Client *generation.Client
	// Rag provides document context to runs that ask for it. It may be nil.
	Rag    *RagService
	Ledger cloud.UsageLedger

	generateTemplate *template.Template
	contextTemplate  *template.Template
	jsonSystem       string
}

func NewToolService(config *cloud.Config, client *generation.Client, rag *RagService, ledger cloud.UsageLedger) (*ToolService, error) {
	generateTemplate, err := template.New("tool-generate").Parse(config.PromptTemplates.ToolGenerate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tool generation template: %w", err)
	}
	contextTemplate, err := template.New("tool-run-context").Parse(config.PromptTemplates.ToolRunContext)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tool run context template: %w", err)
	}
	return &ToolService{
		Client:           client,
		Rag:              rag,
		Ledger:           ledger,
		generateTemplate: generateTemplate,
		contextTemplate:  contextTemplate,
		jsonSystem:       config.PromptTemplates.JSONOnlySystem,
	}, nil
}

// Generate turns a plain language description into a tool definition.
func (s *ToolService) Generate(ctx context.Context, description string) (tool *model.ToolConfig, err error) {
	if strings.TrimSpace(description) == "" {
		return nil, apperr.New(apperr.InvalidInput, "description is required")
	}
	usage := model.NewUsageRecord(model.OperationToolGenerate, "")
	defer func() { finishUsage(ctx, s.Ledger, usage, err) }()

	prompt, err := render(s.generateTemplate, struct {
		Description string
		Example     string
	}{description, model.ExampleJSON(model.GetExampleToolConfig())})
	if err != nil {
		return nil, err
	}
	usage.InputChars = utf8.RuneCountInString(prompt)

	tool, attempts, err := generation.Generate(ctx, s.Client,
		generation.Request{System: s.jsonSystem, Prompt: prompt, JSON: true}, parser.ParseToolConfig)
	usage.Attempts = len(attempts)
	usage.Provider = model.LastProvider(attempts)
	if err != nil {
		return nil, err
	}
	usage.Items = len(tool.Inputs)
	return tool, nil
}

// Run fills the prompt template of a tool with the inputs and generates the
// result. With UseDocuments the matching document chunks are placed before
// the prompt and their filenames returned as sources.
func (s *ToolService) Run(ctx context.Context, req *model.ToolRunRequest) (result *model.ToolRunResult, err error) {
	if req == nil || strings.TrimSpace(req.PromptTemplate) == "" || req.Inputs == nil {
		return nil, apperr.New(apperr.InvalidInput, "promptTemplate and inputs are required")
	}
	usage := model.NewUsageRecord(model.OperationToolRun, "")
	defer func() { finishUsage(ctx, s.Ledger, usage, err) }()

	prompt := FillTemplate(req.PromptTemplate, req.Inputs)
	result = &model.ToolRunResult{}
	if req.UseDocuments {
		if s.Rag == nil {
			return nil, apperr.New(apperr.ConfigurationMissing, "document search is not configured")
		}
		found, err := s.Rag.Retrieve(ctx, prompt)
		if err != nil {
			return nil, err
		}
		usage.Items = found.Matches
		result.Sources = found.Sources
		if found.Context != "" {
			prompt, err = render(s.contextTemplate, struct {
				Context string
				Prompt  string
			}{found.Context, prompt})
			if err != nil {
				return nil, err
			}
		}
	}
	usage.InputChars = utf8.RuneCountInString(prompt)

	text, attempts, err := s.Client.Text(ctx, generation.Request{Prompt: prompt})
	usage.Attempts = len(attempts)
	usage.Provider = model.LastProvider(attempts)
	if err != nil {
		return nil, err
	}
	result.Result = text
	return result, nil
}

// FillTemplate replaces every {{key}} in promptTemplate with the matching
// input. Keys are applied in sorted order; a nil value becomes empty.
func FillTemplate(promptTemplate string, inputs map[string]any) string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := promptTemplate
	for _, k := range keys {
		value := ""
		if v := inputs[k]; v != nil {
			value = fmt.Sprint(v)
		}
		out = strings.ReplaceAll(out, "{{"+k+"}}", value)
	}
	return out
}
