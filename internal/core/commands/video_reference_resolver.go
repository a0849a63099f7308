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
	"strings"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
	"github.com/wrapperai/wrapper-ai/internal/core/transcript"
	"github.com/wrapperai/wrapper-ai/internal/core/video"
)

// VideoReferenceResolver validates the repurpose request. Pasted text becomes
// the transcript directly and no acquisition runs; otherwise the URL must
// carry a video id.
type VideoReferenceResolver struct {
	cor.BaseCommand
}

func NewVideoReferenceResolver(name string) *VideoReferenceResolver {
	out := &VideoReferenceResolver{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = KeyRequest
	return out
}

func (c *VideoReferenceResolver) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*model.RepurposeRequest)
	usage := usageOf(context)

	hasText := strings.TrimSpace(req.Text) != ""
	url := strings.TrimSpace(req.URL)

	switch {
	case hasText || (req.Text != "" && url == ""):
		result, err := transcript.Manual(req.Text)
		if err != nil {
			c.Fail(context, err)
			return
		}
		usage.Subject = "manual"
		usage.Strategy = string(result.SourceStrategy)
		context.Add(KeyTranscript, result)
		c.Succeed(context, result)

	case url == "":
		c.Fail(context, apperr.New(apperr.InvalidInput, "provide a YouTube URL or the text to repurpose"))

	default:
		ref := video.NewReference(url)
		if !ref.HasID() {
			c.Fail(context, apperr.Newf(apperr.InvalidInput, "no YouTube video id found in %q", url))
			return
		}
		usage.Subject = ref.VideoID
		context.Add(KeyVideo, ref)
		c.Succeed(context, ref)
	}
}
