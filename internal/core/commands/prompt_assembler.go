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
	"bytes"
	"fmt"
	"text/template"
	"unicode/utf8"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/metadata"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// PromptAssembler waits for the description lookup, flattens the transcript
// and the description into a single text no longer than maxChars, and
// renders the repurpose template with it.
type PromptAssembler struct {
	cor.BaseCommand
	template *template.Template
	maxChars int
}

func NewPromptAssembler(name string, template *template.Template, maxChars int) *PromptAssembler {
	out := &PromptAssembler{BaseCommand: *cor.NewBaseCommand(name), template: template, maxChars: maxChars}
	out.InputParamName = KeyTranscript
	return out
}

// GenerateParams returns the values the repurpose template is rendered with.
func (c *PromptAssembler) GenerateParams(content string) map[string]interface{} {
	return map[string]interface{}{
		"Content": content,
		"Example": model.ExampleJSON(model.GetExampleStructuredContent()),
	}
}

func (c *PromptAssembler) Execute(context cor.Context) {
	result := context.Get(c.GetInputParam()).(*model.TranscriptResult)
	ctx := context.GetContext()

	description := ""
	if pending, ok := context.Get(KeyEnrichment).(*metadata.Pending); ok {
		description = pending.Wait(ctx)
	}
	if result.IsBlank() {
		c.Fail(context, apperr.New(apperr.EmptyContent, "the transcript is empty"))
		return
	}

	combined := model.EnrichedContext{Transcript: result.Text, Description: description}.Combined(c.maxChars)
	usageOf(context).InputChars = utf8.RuneCountInString(combined)

	var buffer bytes.Buffer
	if err := c.template.Execute(&buffer, c.GenerateParams(combined)); err != nil {
		c.Fail(context, apperr.Wrap(apperr.Internal, fmt.Errorf("failed to execute prompt template: %w", err), "could not build the prompt"))
		return
	}
	context.Add(KeyPrompt, buffer.String())
	c.Succeed(context, buffer.String())
}
