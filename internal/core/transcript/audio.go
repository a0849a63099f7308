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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

const (
	DefaultYtDlp         = "yt-dlp"
	DefaultMaxAudioBytes = 25 << 20
)

// SpeechToText turns an audio stream into text. name carries the file
// extension the provider uses to detect the container.
type SpeechToText interface {
	Transcribe(ctx context.Context, name string, audio io.Reader) (string, error)
}

var downloadMarkers = []marker{
	{substrings: []string{"HTTP Error 429", "Too Many Requests"}, reason: ErrRateLimited},
	{substrings: []string{"Sign in to confirm", "login", "cookies"}, reason: ErrLoginRequired},
	{substrings: []string{"Video unavailable", "Private video", "This video has been removed"}, reason: ErrVideoUnavailable},
}

// AudioSource downloads the best audio only stream with yt-dlp and submits
// it to a speech to text provider.
type AudioSource struct {
	YtDlp       string
	UserAgent   string
	Proxy       string
	CookiesFile string
	ExtraArgs   []string
	// FFmpeg, when set, transcodes the download to 16 kHz mono mp3 before
	// transcription, which keeps most videos under the provider upload limit.
	FFmpeg        string
	MaxAudioBytes int64
	Transcriber   SpeechToText
	Logger        *slog.Logger
}

func (s *AudioSource) Name() string {
	return "audio"
}

func (s *AudioSource) Strategy() model.TranscriptStrategy {
	return model.StrategyAudioTranscription
}

// Available reports ErrNotConfigured when no speech to text provider is set.
func (s *AudioSource) Available() error {
	if s.Transcriber == nil {
		return fmt.Errorf("%w: speech to text needs GROQ_API_KEY", ErrNotConfigured)
	}
	return nil
}

// DownloadArgs returns the yt-dlp arguments used for url.
func (s *AudioSource) DownloadArgs(url string) []string {
	args := []string{"-f", "bestaudio[ext=m4a]/bestaudio", "--no-playlist", "-q", "-o", "-"}
	if s.UserAgent != "" {
		args = append(args, "--user-agent", s.UserAgent)
	}
	if s.Proxy != "" {
		args = append(args, "--proxy", s.Proxy)
	}
	if s.CookiesFile != "" {
		args = append(args, "--cookies", s.CookiesFile)
	}
	args = append(args, s.ExtraArgs...)
	return append(args, url)
}

func (s *AudioSource) Fetch(ctx context.Context, ref model.VideoReference) (string, error) {
	if err := s.Available(); err != nil {
		return "", err
	}
	ytdlp := s.YtDlp
	if ytdlp == "" {
		ytdlp = DefaultYtDlp
	}
	limit := s.MaxAudioBytes
	if limit <= 0 {
		limit = DefaultMaxAudioBytes
	}

	audio, stderr, err := runBounded(ctx, ytdlp, s.DownloadArgs(ref.WatchURL()), nil, limit)
	if err != nil {
		switch {
		case errors.Is(err, errOutputTooLarge):
			return "", fmt.Errorf("%w (%d bytes)", ErrAudioTooLarge, limit)
		case errors.Is(err, ErrToolNotFound), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return "", err
		}
		if reason := classify(stderr, downloadMarkers); reason != nil {
			return "", reason
		}
		if line := firstLine(stderr); line != "" {
			return "", fmt.Errorf("download failed: %s", line)
		}
		return "", fmt.Errorf("download failed: %w", err)
	}
	if len(audio) == 0 {
		return "", errors.New("download produced no audio")
	}

	name := "audio.m4a"
	if ref.VideoID != "" {
		name = ref.VideoID + ".m4a"
	}
	if s.FFmpeg != "" {
		if converted, cerr := s.transcode(ctx, audio, limit); cerr != nil {
			s.logger().WarnContext(ctx, "transcript: transcode failed, sending original audio", slog.Any("error", cerr))
		} else {
			audio = converted
			name = name[:len(name)-len(".m4a")] + ".mp3"
		}
	}

	return s.Transcriber.Transcribe(ctx, name, bytes.NewReader(audio))
}

func (s *AudioSource) transcode(ctx context.Context, audio []byte, limit int64) ([]byte, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0", "-vn", "-ac", "1", "-ar", "16000", "-b:a", "48k", "-f", "mp3", "pipe:1"}
	out, stderr, err := runBounded(ctx, s.FFmpeg, args, bytes.NewReader(audio), limit)
	if err != nil {
		if line := firstLine(stderr); line != "" {
			return nil, fmt.Errorf("ffmpeg: %s: %w", line, err)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("ffmpeg produced no output")
	}
	return out, nil
}

func (s *AudioSource) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
