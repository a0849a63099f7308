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
	"context"
	"log/slog"

	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/metadata"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// TranscriptAcquirer fetches the transcript of a video.
type TranscriptAcquirer interface {
	Acquire(ctx context.Context, ref model.VideoReference) (*model.TranscriptResult, error)
}

// TranscriptAcquisition starts the description lookup in the background and
// then runs the transcript strategies. It does nothing on the manual path.
type TranscriptAcquisition struct {
	cor.BaseCommand
	acquirer TranscriptAcquirer
	enricher *metadata.Enricher
}

func NewTranscriptAcquisition(name string, acquirer TranscriptAcquirer, enricher *metadata.Enricher) *TranscriptAcquisition {
	out := &TranscriptAcquisition{BaseCommand: *cor.NewBaseCommand(name), acquirer: acquirer, enricher: enricher}
	out.InputParamName = KeyVideo
	return out
}

func (c *TranscriptAcquisition) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) && context.Get(KeyTranscript) == nil
}

func (c *TranscriptAcquisition) Execute(context cor.Context) {
	ref := context.Get(c.GetInputParam()).(model.VideoReference)
	ctx := context.GetContext()

	if c.enricher != nil {
		context.Add(KeyEnrichment, c.enricher.Start(ctx, ref))
	}

	result, err := c.acquirer.Acquire(ctx, ref)
	if err != nil {
		c.Fail(context, err)
		return
	}
	usageOf(context).Strategy = string(result.SourceStrategy)
	slog.InfoContext(ctx, "transcript acquired",
		slog.String("video_id", ref.VideoID),
		slog.String("strategy", string(result.SourceStrategy)),
		slog.Int("chars", result.CharLength))
	context.Add(KeyTranscript, result)
	c.Succeed(context, result)
}
