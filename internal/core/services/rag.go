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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// ContextSeparator separates the matched chunks in the chat context.
const ContextSeparator = "\n---\n"

// Retrieval is the document context found for a query.
type Retrieval struct {
	Context string
	Sources []string
	Matches int
}

// RagService answers questions from the indexed documents.
type RagService struct {
	Embedder  cloud.Embedder
	Store     cloud.VectorStore
	Client    *generation.Client
	Ledger    cloud.UsageLedger
	Threshold float64
	Count     int

	chatTemplate     *template.Template
	questionTemplate *template.Template
}

// NewRagService creates the service with the search settings and the chat
// prompts from config.
func NewRagService(config *cloud.Config, embedder cloud.Embedder, store cloud.VectorStore,
	client *generation.Client, ledger cloud.UsageLedger) (*RagService, error) {

	chatTemplate, err := template.New("chat-system").Parse(config.PromptTemplates.ChatSystem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chat system template: %w", err)
	}
	questionTemplate, err := template.New("chat-question").Parse(config.PromptTemplates.ChatQuestion)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chat question template: %w", err)
	}
	return &RagService{
		Embedder:         embedder,
		Store:            store,
		Client:           client,
		Ledger:           ledger,
		Threshold:        config.Rag.MatchThreshold,
		Count:            config.Rag.MatchCount,
		chatTemplate:     chatTemplate,
		questionTemplate: questionTemplate,
	}, nil
}

// Retrieve embeds query and returns the matching chunks joined with
// ContextSeparator, along with the distinct source filenames in match order.
func (s *RagService) Retrieve(ctx context.Context, query string) (*Retrieval, error) {
	if s.Embedder == nil {
		return nil, apperr.Missing(cloud.EnvGoogleAPIKey, "embedding model")
	}
	if s.Store == nil {
		return nil, apperr.New(apperr.ConfigurationMissing, "no document store is configured")
	}
	embedding, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, classify(err, apperr.ProviderUnavailable, "failed to embed the question")
	}
	matches, err := s.Store.Match(ctx, embedding, s.Threshold, s.Count)
	if err != nil {
		return nil, classify(err, apperr.PersistenceFailure, "document search failed")
	}

	contents := make([]string, 0, len(matches))
	sources := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for _, m := range matches {
		contents = append(contents, m.Content)
		name := m.Filename()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		sources = append(sources, name)
	}
	return &Retrieval{
		Context: strings.Join(contents, ContextSeparator),
		Sources: sources,
		Matches: len(matches),
	}, nil
}

// Chat answers message using only the documents that match it.
func (s *RagService) Chat(ctx context.Context, message string) (answer *model.ChatAnswer, err error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.New(apperr.InvalidInput, "message is required")
	}
	usage := model.NewUsageRecord(model.OperationChat, "")
	defer func() { finishUsage(ctx, s.Ledger, usage, err) }()

	found, err := s.Retrieve(ctx, message)
	if err != nil {
		return nil, err
	}
	usage.Items = found.Matches
	usage.InputChars = utf8.RuneCountInString(found.Context)

	system, err := render(s.chatTemplate, struct{ Context string }{found.Context})
	if err != nil {
		return nil, err
	}
	prompt, err := render(s.questionTemplate, struct{ Question string }{message})
	if err != nil {
		return nil, err
	}
	text, attempts, err := s.Client.Text(ctx, generation.Request{System: system, Prompt: prompt})
	usage.Attempts = len(attempts)
	usage.Provider = model.LastProvider(attempts)
	if err != nil {
		return nil, err
	}
	return &model.ChatAnswer{Answer: text, Sources: found.Sources}, nil
}

// classify keeps the kind of an already classified error and gives the
// others the fallback kind.
func classify(err error, fallback apperr.Kind, message string) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Wrap(fallback, err, message)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", apperr.Wrap(apperr.Internal, err, "failed to render the "+tmpl.Name()+" prompt")
	}
	return buf.String(), nil
}

// finishUsage completes and writes a usage record for operations that do not
// run through a workflow.
func finishUsage(ctx context.Context, ledger cloud.UsageLedger, usage *model.UsageRecord, err error) {
	usage.Succeeded = err == nil
	if err != nil {
		usage.ErrorKind = apperr.KindOf(err).String()
		slog.WarnContext(ctx, "request failed",
			slog.String("operation", usage.Operation),
			slog.String("request_id", usage.RequestId),
			slog.String("kind", usage.ErrorKind),
			slog.Any("error", err))
	}
	cloud.RecordUsage(ctx, ledger, usage)
}
