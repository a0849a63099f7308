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

// Package transcript obtains the text of a video. Each acquisition strategy
// is a Source; the Acquirer tries them strictly one after another, in the
// configured priority order, and stops at the first one that produces text.
//
// Sources shell out to external tools that fail in many upstream specific
// ways, so every failure is reduced to one of the typed reasons in errors.go
// before it reaches the Acquirer. When all sources fail, the Acquirer builds a
// single TranscriptUnavailable error listing each strategy's reason together
// with the actions the user can take.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

const DefaultTimeout = 3 * time.Minute

// Source is one transcript acquisition strategy.
type Source interface {
	Name() string
	Strategy() model.TranscriptStrategy
	Fetch(ctx context.Context, ref model.VideoReference) (string, error)
}

// Availability is implemented by sources that can tell, without any I/O,
// that they cannot run.
type Availability interface {
	Available() error
}

// Acquirer runs Sources in order until one returns non blank text.
type Acquirer struct {
	Sources []Source
	// Timeout bounds each source separately.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Failure is the reason one strategy did not produce a transcript.
type Failure struct {
	Source string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Source, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Acquire returns the transcript of the first source that succeeds.
func (a *Acquirer) Acquire(ctx context.Context, ref model.VideoReference) (*model.TranscriptResult, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(a.Sources) == 0 {
		return nil, apperr.New(apperr.TranscriptUnavailable, "no transcript strategy is enabled")
	}

	failures := make([]Failure, 0, len(a.Sources))
	for _, source := range a.Sources {
		if ctx.Err() != nil {
			failures = append(failures, Failure{Source: source.Name(), Err: fmt.Errorf("%w: request ended", ErrTimeout)})
			break
		}
		if checker, ok := source.(Availability); ok {
			if err := checker.Available(); err != nil {
				logger.WarnContext(ctx, "transcript: strategy unavailable, trying next",
					slog.String("strategy", source.Name()), slog.Any("error", err))
				failures = append(failures, Failure{Source: source.Name(), Err: err})
				continue
			}
		}

		start := time.Now()
		text, err := a.fetch(ctx, source, ref)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyTranscript
		}
		if err != nil {
			logger.WarnContext(ctx, "transcript: strategy failed, trying next",
				slog.String("strategy", source.Name()),
				slog.String("video_id", ref.VideoID),
				slog.Duration("elapsed", time.Since(start)),
				slog.Any("error", err))
			failures = append(failures, Failure{Source: source.Name(), Err: err})
			continue
		}

		result := model.NewTranscriptResult(strings.TrimSpace(text), source.Strategy())
		logger.InfoContext(ctx, "transcript: acquired",
			slog.String("strategy", source.Name()),
			slog.String("video_id", ref.VideoID),
			slog.Int("chars", result.CharLength),
			slog.Duration("elapsed", time.Since(start)))
		return result, nil
	}
	return nil, composite(failures)
}

func (a *Acquirer) fetch(ctx context.Context, source Source, ref model.VideoReference) (string, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := source.Fetch(sctx, ref)
	if err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return text, err
}

// composite turns the per strategy failures into one classified error. When
// every strategy only produced blank text the result is EmptyContent.
func composite(failures []Failure) error {
	errs := make([]error, 0, len(failures))
	reasons := make([]string, 0, len(failures))
	allEmpty := len(failures) > 0
	for _, f := range failures {
		errs = append(errs, f)
		reasons = append(reasons, f.Error())
		if !errors.Is(f.Err, ErrEmptyTranscript) {
			allEmpty = false
		}
	}
	joined := errors.Join(errs...)
	if allEmpty {
		return apperr.Wrap(apperr.EmptyContent, joined, "the video transcript is empty")
	}

	message := "could not get the transcript of this video. " + strings.Join(reasons, "; ") + "."
	if hints := Hints(joined); len(hints) > 0 {
		message += " " + strings.Join(hints, " ")
	}
	return apperr.Wrap(apperr.TranscriptUnavailable, joined, message)
}

// Hints returns the actions a user can take for the reasons carried by err.
// Pasting the transcript is always offered.
func Hints(err error) []string {
	var hints []string
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrLoginRequired) {
		hints = append(hints, "Configure a proxy (YTDLP_PROXY) or a cookies file (YTDLP_COOKIES_FILE) to get past upstream bot detection.")
	}
	if errors.Is(err, ErrToolNotFound) {
		hints = append(hints, "Install yt-dlp and the youtube-transcript-api Python package, or point YTDLP_PATH and PYTHON_PATH at them.")
	}
	if errors.Is(err, ErrAudioTooLarge) {
		hints = append(hints, "The video is too long for audio transcription; set FFMPEG_PATH to compress the audio.")
	}
	return append(hints, "You can also paste the transcript text directly instead of a URL.")
}
