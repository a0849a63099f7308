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

// Package workflow combines the commands into the pipelines the services run.
// Every workflow is an inner chain that stops at the first error, wrapped in
// an outer chain that always finishes with the usage recorder.
package workflow

import (
	"fmt"
	"text/template"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/commands"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/metadata"
)

// RepurposeWorkflow turns a video URL, or pasted text, into a blog post, a
// thread and a LinkedIn post.
//
// Context in:  commands.KeyRequest (*model.RepurposeRequest), commands.KeyUsage.
// Context out: commands.KeyContent (*model.StructuredContent).
type RepurposeWorkflow struct {
	cor.BaseCommand
	acquirer       commands.TranscriptAcquirer
	enricher       *metadata.Enricher
	client         *generation.Client
	ledger         cloud.UsageLedger
	promptTemplate *template.Template
	system         string
	maxPromptChars int
	steps          *cor.BaseChain
	chain          cor.Chain
}

func (w *RepurposeWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(commands.KeyRequest) != nil && context.Get(commands.KeyUsage) != nil
}

func (w *RepurposeWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Steps returns the command names of the inner chain in execution order.
func (w *RepurposeWorkflow) Steps() []string {
	return w.steps.Commands()
}

func (w *RepurposeWorkflow) initializeChain() {
	steps := cor.NewBaseChain(w.GetName() + "-steps")
	steps.AddCommand(commands.NewVideoReferenceResolver("video-reference-resolver"))
	steps.AddCommand(commands.NewTranscriptAcquisition("transcript-acquisition", w.acquirer, w.enricher))
	steps.AddCommand(commands.NewPromptAssembler("prompt-assembler", w.promptTemplate, w.maxPromptChars))
	steps.AddCommand(commands.NewStructuredContentGenerator("structured-content-generator", w.client, w.system))

	w.steps = steps
	w.chain = withUsage(w.GetName(), steps, w.ledger)
}

// withUsage runs steps and then records usage whatever the outcome.
func withUsage(name string, steps cor.Chain, ledger cloud.UsageLedger) cor.Chain {
	out := cor.NewBaseChain(name)
	out.ContinueOnFailure(true)
	out.AddCommand(steps)
	out.AddCommand(commands.NewUsageRecorder("usage-recorder", ledger))
	return out
}

// NewRepurposeWorkflow builds the repurpose pipeline. The enricher may be nil.
func NewRepurposeWorkflow(
	config *cloud.Config,
	acquirer commands.TranscriptAcquirer,
	enricher *metadata.Enricher,
	client *generation.Client,
	ledger cloud.UsageLedger) (*RepurposeWorkflow, error) {

	promptTemplate, err := template.New("repurpose-template").Parse(config.PromptTemplates.Repurpose)
	if err != nil {
		return nil, fmt.Errorf("failed to parse repurpose template: %w", err)
	}
	w := &RepurposeWorkflow{
		BaseCommand:    *cor.NewBaseCommand("repurpose-workflow"),
		acquirer:       acquirer,
		enricher:       enricher,
		client:         client,
		ledger:         ledger,
		promptTemplate: promptTemplate,
		system:         config.PromptTemplates.RepurposeSystem,
		maxPromptChars: config.Application.MaxPromptChars,
	}
	w.initializeChain()
	return w, nil
}
