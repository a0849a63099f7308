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
	"log/slog"

	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/parser"
)

// StructuredContentGenerator asks the generation client for the blog post,
// the thread and the LinkedIn post, and validates the answer.
type StructuredContentGenerator struct {
	cor.BaseCommand
	client *generation.Client
	system string
}

func NewStructuredContentGenerator(name string, client *generation.Client, system string) *StructuredContentGenerator {
	out := &StructuredContentGenerator{BaseCommand: *cor.NewBaseCommand(name), client: client, system: system}
	out.InputParamName = KeyPrompt
	return out
}

func (c *StructuredContentGenerator) Execute(context cor.Context) {
	prompt := context.Get(c.GetInputParam()).(string)
	ctx := context.GetContext()

	content, attempts, err := generation.Generate(ctx, c.client,
		generation.Request{System: c.system, Prompt: prompt, JSON: true},
		parser.ParseStructuredContent)

	usage := usageOf(context)
	usage.Attempts = len(attempts)
	usage.Provider = model.LastProvider(attempts)
	context.Add(KeyAttempts, attempts)

	if err != nil {
		c.Fail(context, err)
		return
	}
	usage.Items = len(content.TwitterThread)
	slog.InfoContext(ctx, "structured content generated",
		slog.String("provider", usage.Provider), slog.Int("attempts", usage.Attempts))
	context.Add(KeyContent, content)
	c.Succeed(context, content)
}
