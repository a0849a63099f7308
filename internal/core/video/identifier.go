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

// Package video turns the URLs users paste into canonical video identifiers.
package video

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// IDLength is the length of every platform video identifier.
const IDLength = 11

var (
	unifiedPattern = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?|shorts|live)/|\S*?[?&]v=)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	idPattern      = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	hostPattern    = regexp.MustCompile(`^(?:(?:www|m|music)\.)?youtube(?:-nocookie)?\.com$|^(?:www\.)?youtu\.be$`)
)

// ExtractVideoID returns the 11 character identifier embedded in raw. The
// boolean is false when no identifier can be found, including URLs on any
// host other than YouTube's; that is an expected outcome, never a panic.
func ExtractVideoID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || !hostPattern.MatchString(strings.ToLower(u.Hostname())) {
		return "", false
	}
	if m := unifiedPattern.FindStringSubmatch(raw); m != nil && isID(m[1]) {
		return m[1], true
	}
	return parseStructured(u)
}

// NewReference builds the per request VideoReference for raw.
func NewReference(raw string) model.VideoReference {
	id, _ := ExtractVideoID(raw)
	return model.VideoReference{RawURL: strings.TrimSpace(raw), VideoID: id}
}

// parseStructured handles the shapes the unified pattern misses, such as
// an escaped query parameter name.
func parseStructured(u *url.URL) (string, bool) {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	if host == "youtu.be" && len(segments) > 0 {
		return validated(segments[0])
	}
	if len(segments) > 1 && segments[0] == "shorts" {
		return validated(segments[1])
	}
	if v := u.Query().Get("v"); v != "" {
		return validated(v)
	}
	return "", false
}

func validated(candidate string) (string, bool) {
	if isID(candidate) {
		return candidate, true
	}
	return "", false
}

func isID(candidate string) bool {
	return len(candidate) == IDLength && idPattern.MatchString(candidate)
}
