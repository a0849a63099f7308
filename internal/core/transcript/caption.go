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

package transcript

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

//go:embed captions.py
var captionScript string

const (
	DefaultPython             = "python3"
	DefaultCaptionOutputBytes = 8 << 20
)

var captionMarkers = []marker{
	{substrings: []string{"No module named", "ModuleNotFoundError"}, reason: ErrToolNotFound},
	{substrings: []string{"TranscriptsDisabled", "NoTranscriptFound"}, reason: ErrCaptionsDisabled},
	{substrings: []string{"Too Many Requests", "429", "IpBlocked", "RequestBlocked"}, reason: ErrRateLimited},
	{substrings: []string{"VideoUnavailable", "VideoUnplayable"}, reason: ErrVideoUnavailable},
	{substrings: []string{"AgeRestricted"}, reason: ErrLoginRequired},
}

// CaptionSource reads the platform captions through the youtube_transcript_api
// Python package, preferring Languages in order.
type CaptionSource struct {
	Python         string
	Languages      []string
	MaxOutputBytes int64
}

type captionSegment struct {
	Text string `json:"text"`
}

func (s *CaptionSource) Name() string {
	return "captions"
}

func (s *CaptionSource) Strategy() model.TranscriptStrategy {
	return model.StrategyCaptionAPI
}

func (s *CaptionSource) Fetch(ctx context.Context, ref model.VideoReference) (string, error) {
	if !ref.HasID() {
		return "", fmt.Errorf("%w: no video id in %q", ErrVideoUnavailable, ref.RawURL)
	}
	python := s.Python
	if python == "" {
		python = DefaultPython
	}
	languages := s.Languages
	if len(languages) == 0 {
		languages = []string{"fr", "en"}
	}
	limit := s.MaxOutputBytes
	if limit <= 0 {
		limit = DefaultCaptionOutputBytes
	}

	stdout, stderr, err := runBounded(ctx, python, []string{"-c", captionScript, ref.VideoID, strings.Join(languages, ",")}, nil, limit)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		if errors.Is(err, errOutputTooLarge) {
			return "", fmt.Errorf("caption output exceeds %d bytes", limit)
		}
		diagnostics := stderr + "\n" + string(stdout)
		if reason := classify(diagnostics, captionMarkers); reason != nil {
			return "", reason
		}
		if line := firstLine(diagnostics); line != "" {
			return "", errors.New(line)
		}
		return "", fmt.Errorf("caption tool failed: %w", err)
	}

	return parseSegments(string(stdout))
}

// parseSegments joins the text of a JSON segment array. Output that is not
// JSON shaped is a diagnostic, and its first line becomes the error.
func parseSegments(output string) (string, error) {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "[") {
		if reason := classify(trimmed, captionMarkers); reason != nil {
			return "", reason
		}
		if line := firstLine(trimmed); line != "" {
			return "", errors.New(line)
		}
		return "", ErrEmptyTranscript
	}
	var segments []captionSegment
	if err := json.Unmarshal([]byte(trimmed), &segments); err != nil {
		return "", fmt.Errorf("caption output is not valid JSON: %w", err)
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.Join(strings.Fields(seg.Text), " ")
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
