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

// Package metadata fetches auxiliary video text, such as the description, to
// enrich the prompt. Enrichment is best effort: nothing in this package ever
// fails a request.
package metadata

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

const DefaultTimeout = 10 * time.Second

// Client reads the description of a video.
type Client interface {
	Name() string
	Description(ctx context.Context, ref model.VideoReference) (string, error)
}

// Enricher tries Primary, then Secondary, and swallows every failure.
type Enricher struct {
	Primary   Client
	Secondary Client
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Fetch returns the description of ref, or an empty string.
func (e *Enricher) Fetch(ctx context.Context, ref model.VideoReference) string {
	if e == nil || !ref.HasID() {
		return ""
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, client := range []Client{e.Primary, e.Secondary} {
		if client == nil {
			continue
		}
		description, err := client.Description(ctx, ref)
		if err != nil {
			logger.InfoContext(ctx, "metadata: client failed",
				slog.String("client", client.Name()), slog.String("video_id", ref.VideoID), slog.Any("error", err))
			continue
		}
		if description = strings.TrimSpace(description); description != "" {
			return description
		}
	}
	return ""
}

// Pending is an enrichment running in the background.
type Pending struct {
	done  chan struct{}
	value string
}

// Start launches Fetch concurrently. The goroutine ends with ctx or the
// enricher timeout, whichever comes first.
func (e *Enricher) Start(ctx context.Context, ref model.VideoReference) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.value = e.Fetch(ctx, ref)
	}()
	return p
}

// Wait returns the description, or an empty string when ctx ends first.
func (p *Pending) Wait(ctx context.Context) string {
	if p == nil {
		return ""
	}
	select {
	case <-p.done:
		return p.value
	case <-ctx.Done():
		return ""
	}
}
