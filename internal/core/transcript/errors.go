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
	"errors"
	"fmt"
	"strings"
)

// Typed reasons a source can fail with. Sources wrap them with detail, so
// callers should test with errors.Is.
var (
	ErrCaptionsDisabled = errors.New("captions are disabled for this video")
	ErrRateLimited      = errors.New("the video platform is rate limiting this server")
	ErrVideoUnavailable = errors.New("the video is unavailable")
	ErrLoginRequired    = errors.New("the video platform asked to sign in")
	ErrToolNotFound     = errors.New("a required tool is not installed")
	ErrAudioTooLarge    = errors.New("the audio stream exceeds the size limit")
	ErrTimeout          = errors.New("the strategy timed out")
	ErrNotConfigured    = errors.New("the strategy is not configured")
	ErrEmptyTranscript  = errors.New("returned an empty transcript")
)

type marker struct {
	substrings []string
	reason     error
}

// classify returns the first reason whose markers appear in output.
func classify(output string, markers []marker) error {
	lower := strings.ToLower(output)
	for _, m := range markers {
		for _, s := range m.substrings {
			if strings.Contains(lower, strings.ToLower(s)) {
				return fmt.Errorf("%w (%s)", m.reason, firstLine(output))
			}
		}
	}
	return nil
}

// firstLine returns the first non blank line of s, trimmed and capped so it
// can be placed in an error message.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 300 {
			line = line[:300] + "..."
		}
		return line
	}
	return ""
}
