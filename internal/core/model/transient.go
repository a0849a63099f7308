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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the structures that only live for the
// duration of a request or a workflow execution. They are passed between
// commands in a chain and returned to callers, but never written to a store
// in this form.
package model

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// VideoReference is derived once per request from the URL supplied by the
// caller. VideoID is empty when no identifier could be extracted.
type VideoReference struct {
	RawURL  string `json:"rawUrl"`
	VideoID string `json:"videoId,omitempty"`
}

// HasID reports whether an identifier was extracted.
func (v VideoReference) HasID() bool {
	return v.VideoID != ""
}

// WatchURL returns the canonical watch URL for the reference, falling back to
// the raw URL when no identifier is known.
func (v VideoReference) WatchURL() string {
	if v.VideoID == "" {
		return v.RawURL
	}
	return "https://www.youtube.com/watch?v=" + v.VideoID
}

// TranscriptStrategy names the acquisition path that produced a transcript.
type TranscriptStrategy string

const (
	StrategyCaptionAPI         TranscriptStrategy = "CaptionAPI"
	StrategyAudioTranscription TranscriptStrategy = "AudioTranscription"
	StrategyManual             TranscriptStrategy = "Manual"
)

// TranscriptResult is produced once per request and never mutated afterwards.
type TranscriptResult struct {
	Text           string             `json:"text"`
	SourceStrategy TranscriptStrategy `json:"sourceStrategy"`
	CharLength     int                `json:"charLength"`
}

// NewTranscriptResult builds a result, computing the character length in runes.
func NewTranscriptResult(text string, strategy TranscriptStrategy) *TranscriptResult {
	return &TranscriptResult{
		Text:           text,
		SourceStrategy: strategy,
		CharLength:     len([]rune(text)),
	}
}

// IsBlank reports whether the transcript has no usable text.
func (t *TranscriptResult) IsBlank() bool {
	return t == nil || strings.TrimSpace(t.Text) == ""
}

// EnrichedContext is the transcript plus any best-effort auxiliary text,
// before it is flattened into a prompt.
type EnrichedContext struct {
	Transcript  string
	Description string
}

// DescriptionHeading separates the transcript from the video description in
// the combined text.
const DescriptionHeading = "\n\nDescription de la vidéo :\n"

// Combined flattens the context into the text sent to the provider, cut to
// at most limit characters. The transcript comes first so truncation drops
// the description before any of the transcript.
func (e EnrichedContext) Combined(limit int) string {
	text := strings.TrimSpace(e.Transcript)
	if description := strings.TrimSpace(e.Description); description != "" {
		text += DescriptionHeading + description
	}
	return TruncateRunes(text, limit)
}

// TruncateRunes returns the first limit characters of s. A non positive
// limit returns s unchanged.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// RepurposeRequest is the input of the repurpose workflow. Text, when it
// holds anything but whitespace, is used instead of fetching a transcript.
type RepurposeRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Provider identifies which generation backend served an attempt.
type Provider string

const (
	ProviderPrimary   Provider = "Primary"
	ProviderSecondary Provider = "Secondary"
)

// AttemptOutcome classifies a single generation attempt.
type AttemptOutcome string

const (
	OutcomeSuccess          AttemptOutcome = "Success"
	OutcomeTransientFailure AttemptOutcome = "TransientFailure"
	OutcomeTerminalFailure  AttemptOutcome = "TerminalFailure"
)

// GenerationAttempt records one call made by the generation client. It only
// exists while a request is being served.
type GenerationAttempt struct {
	Provider      Provider       `json:"provider"`
	AttemptNumber int            `json:"attemptNumber"`
	Outcome       AttemptOutcome `json:"outcome"`
}

// StructuredContent is the repurposed content returned to callers.
type StructuredContent struct {
	BlogPost      string   `json:"blogPost"`
	TwitterThread []string `json:"twitterThread"`
	LinkedinPost  string   `json:"linkedinPost"`
}

// ToolInputType enumerates the form controls a generated tool may declare.
type ToolInputType string

const (
	ToolInputText     ToolInputType = "text"
	ToolInputTextarea ToolInputType = "textarea"
	ToolInputSelect   ToolInputType = "select"
)

// ToolInput is one user-supplied variable of a generated tool.
type ToolInput struct {
	Key     string        `json:"key"`
	Label   string        `json:"label"`
	Type    ToolInputType `json:"type"`
	Options []string      `json:"options,omitempty"`
}

// ToolConfig is the no-code tool definition produced by the tool generator.
type ToolConfig struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Inputs         []ToolInput `json:"inputs"`
	PromptTemplate string      `json:"promptTemplate"`
}

// Document is an uploaded file moving through the ingestion chain.
type Document struct {
	Name      string
	MIMEType  string
	Data      []byte
	Text      string
	PageCount int
}

// Match is a single similarity search hit returned by the document store.
type Match struct {
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// Filename returns the filename recorded in the match metadata, if any.
func (m Match) Filename() string {
	if m.Metadata == nil {
		return ""
	}
	if name, ok := m.Metadata[MetadataFilename].(string); ok {
		return name
	}
	return ""
}

// IngestResult summarizes one document ingestion.
type IngestResult struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Saved    int    `json:"saved"`
	Failed   int    `json:"failed"`
}

// ChatAnswer is the reply to a question asked against the indexed documents.
type ChatAnswer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// ToolRunRequest executes a generated tool. Every {{key}} in PromptTemplate
// is replaced with the matching input.
type ToolRunRequest struct {
	PromptTemplate string         `json:"promptTemplate"`
	Inputs         map[string]any `json:"inputs"`
	UseDocuments   bool           `json:"useDocuments"`
}

// ToolRunResult is the output of a tool run. Sources is only set when the
// run used the indexed documents.
type ToolRunResult struct {
	Result  string   `json:"result"`
	Sources []string `json:"sources,omitempty"`
}

// HealthReport is the provider status returned by the health endpoint. It
// is encoded flat: "status" next to one key per provider name, as in
// {"status": "operational", "gemini": "ok", "groq": "not configured"}.
type HealthReport struct {
	Status    string            `json:"status"`
	Providers map[string]string `json:"-"`
}

func (r HealthReport) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(r.Providers)+1)
	for name, status := range r.Providers {
		out[name] = status
	}
	out["status"] = r.Status
	return json.Marshal(out)
}

func (r *HealthReport) UnmarshalJSON(data []byte) error {
	var in map[string]string
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Status = in["status"]
	delete(in, "status")
	r.Providers = in
	return nil
}

// UsageSummary aggregates the usage ledger for one operation.
type UsageSummary struct {
	Operation   string  `json:"operation" bigquery:"operation"`
	Requests    int64   `json:"requests" bigquery:"requests"`
	Succeeded   int64   `json:"succeeded" bigquery:"succeeded"`
	Failed      int64   `json:"failed" bigquery:"failed"`
	AvgAttempts float64 `json:"avgAttempts" bigquery:"avg_attempts"`
}

// StrategySummary aggregates repurpose requests by transcript strategy.
type StrategySummary struct {
	Strategy  string `json:"strategy" bigquery:"strategy"`
	Requests  int64  `json:"requests" bigquery:"requests"`
	Succeeded int64  `json:"succeeded" bigquery:"succeeded"`
}

// UsageStats is the body of the statistics endpoint.
type UsageStats struct {
	Days       int                `json:"days"`
	Operations []*UsageSummary    `json:"operations"`
	Strategies []*StrategySummary `json:"strategies"`
}
