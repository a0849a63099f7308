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

// Package parser validates the raw text returned by generative models against
// the structures the application expects. Models routinely wrap JSON in
// markdown fences or surround it with prose, so the text is cleaned before it
// is decoded.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

var (
	fencePattern  = regexp.MustCompile("```(?:json|JSON)?")
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON strips markdown fences and returns the greedy {...} span of the
// remaining text. When no braces are present the trimmed text is returned.
func ExtractJSON(raw string) string {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
	if span := objectPattern.FindString(cleaned); span != "" {
		return span
	}
	return cleaned
}

// RawOutputError keeps the unparsed model output next to the decoding failure
// so it can be logged. It is always wrapped in a MalformedResponse error whose
// public message does not include it.
type RawOutputError struct {
	Raw string
	Err error
}

func (e *RawOutputError) Error() string {
	return fmt.Sprintf("%v (raw output: %q)", e.Err, e.Raw)
}

func (e *RawOutputError) Unwrap() error {
	return e.Err
}

func malformed(raw string, err error, message string) error {
	return apperr.Wrap(apperr.MalformedResponse, &RawOutputError{Raw: raw, Err: err}, message)
}

func decodeObject(raw string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &fields); err != nil {
		return nil, malformed(raw, err, "response is not a JSON object")
	}
	return fields, nil
}

func requiredString(raw string, fields map[string]json.RawMessage, key string) (string, error) {
	value, ok := fields[key]
	if !ok {
		return "", malformed(raw, fmt.Errorf("missing key %q", key), "response is missing required fields")
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", malformed(raw, fmt.Errorf("key %q: %w", key, err), "response has fields of the wrong type")
	}
	if strings.TrimSpace(s) == "" {
		return "", malformed(raw, fmt.Errorf("key %q is empty", key), "response is missing required fields")
	}
	return s, nil
}

// ParseStructuredContent decodes the repurposing result. All three keys are
// required and the thread must hold at least one string.
func ParseStructuredContent(raw string) (*model.StructuredContent, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	result := &model.StructuredContent{}
	if result.BlogPost, err = requiredString(raw, fields, "blogPost"); err != nil {
		return nil, err
	}
	if result.LinkedinPost, err = requiredString(raw, fields, "linkedinPost"); err != nil {
		return nil, err
	}

	thread, ok := fields["twitterThread"]
	if !ok {
		return nil, malformed(raw, errors.New(`missing key "twitterThread"`), "response is missing required fields")
	}
	if err = json.Unmarshal(thread, &result.TwitterThread); err != nil {
		return nil, malformed(raw, fmt.Errorf(`key "twitterThread": %w`, err), "response has fields of the wrong type")
	}
	if len(result.TwitterThread) == 0 {
		return nil, malformed(raw, errors.New(`key "twitterThread" is empty`), "response is missing required fields")
	}
	return result, nil
}

// ParseToolConfig decodes a generated tool definition.
func ParseToolConfig(raw string) (*model.ToolConfig, error) {
	var config model.ToolConfig
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &config); err != nil {
		return nil, malformed(raw, err, "tool definition is not valid JSON")
	}
	if strings.TrimSpace(config.Name) == "" || strings.TrimSpace(config.PromptTemplate) == "" {
		return nil, malformed(raw, errors.New("name and promptTemplate are required"), "tool definition is incomplete")
	}
	for i, input := range config.Inputs {
		if strings.TrimSpace(input.Key) == "" {
			return nil, malformed(raw, fmt.Errorf("input %d has no key", i), "tool definition is incomplete")
		}
		switch input.Type {
		case model.ToolInputText, model.ToolInputTextarea:
		case model.ToolInputSelect:
			if len(input.Options) == 0 {
				return nil, malformed(raw, fmt.Errorf("select input %q has no options", input.Key), "tool definition is incomplete")
			}
		default:
			return nil, malformed(raw, fmt.Errorf("input %q has unsupported type %q", input.Key, input.Type), "tool definition has an unsupported input type")
		}
	}
	if config.Inputs == nil {
		config.Inputs = []model.ToolInput{}
	}
	return &config, nil
}
