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

package cloud

import (
	"context"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/generation"
)

// NewGroqClient returns an OpenAI compatible client pointed at baseURL.
func NewGroqClient(apiKey string, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// GroqProvider is the secondary generation provider.
type GroqProvider struct {
	Client      *openai.Client
	Model       string
	Temperature float32
	// JSONSystem is sent when a JSON request carries no system prompt that
	// mentions JSON. The json_object format refuses requests without one.
	JSONSystem string
}

func (g *GroqProvider) Name() string {
	return "groq"
}

func (g *GroqProvider) Complete(ctx context.Context, req generation.Request) (string, error) {
	if g.Client == nil {
		return "", apperr.Missing(EnvGroqAPIKey, "groq provider")
	}
	system := req.System
	if req.JSON && !strings.Contains(strings.ToUpper(system+req.Prompt), "JSON") {
		system = strings.TrimSpace(g.JSONSystem + "\n" + system)
	}
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	request := openai.ChatCompletionRequest{
		Model:       g.Model,
		Messages:    messages,
		Temperature: g.Temperature,
	}
	if req.JSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	resp, err := g.Client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", ClassifyOpenAIError(err, "groq")
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", apperr.New(apperr.MalformedResponse, "groq returned an empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// GroqTranscriber implements speech to text with the Whisper endpoint.
type GroqTranscriber struct {
	Client   *openai.Client
	Model    string
	Language string
}

func (g *GroqTranscriber) Transcribe(ctx context.Context, name string, audio io.Reader) (string, error) {
	resp, err := g.Client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    g.Model,
		FilePath: name,
		Reader:   audio,
		Language: g.Language,
	})
	if err != nil {
		return "", ClassifyOpenAIError(err, "groq transcription")
	}
	return strings.TrimSpace(resp.Text), nil
}
