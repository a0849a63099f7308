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

package test

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wrapperai/wrapper-ai/internal/core/generation"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// Reply is one scripted provider answer.
type Reply struct {
	Text string
	Err  error
}

// ScriptedProvider returns its replies in order and repeats the last one
// once the script is exhausted. Every request is recorded.
type ScriptedProvider struct {
	ProviderName string
	Replies      []Reply

	mu       sync.Mutex
	Requests []generation.Request
}

func (p *ScriptedProvider) Name() string {
	return p.ProviderName
}

func (p *ScriptedProvider) Complete(_ context.Context, req generation.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)
	if len(p.Replies) == 0 {
		return "", nil
	}
	i := len(p.Requests) - 1
	if i >= len(p.Replies) {
		i = len(p.Replies) - 1
	}
	return p.Replies[i].Text, p.Replies[i].Err
}

// Calls returns the number of requests received so far.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// NewNoWaitClient returns a generation client that never sleeps between
// retries.
func NewNoWaitClient(primary generation.Provider, secondary generation.Provider) *generation.Client {
	c := generation.NewClient(primary, secondary)
	c.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c
}

// HashEmbedder maps text to a deterministic vector built from its words, so
// texts sharing words end up close to each other.
type HashEmbedder struct {
	Dimensions int
	Err        error

	mu    sync.Mutex
	Texts []string
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.Texts = append(e.Texts, text)
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	dims := e.Dimensions
	if dims <= 0 {
		dims = 16
	}
	vector := make([]float32, dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vector[int(h.Sum32())%dims]++
	}
	return vector, nil
}

// MemoryStore is an in-memory VectorStore ranking by cosine similarity.
type MemoryStore struct {
	// InsertErr, when set, is returned for every insert.
	InsertErr error
	MatchErr  error

	mu     sync.Mutex
	Chunks []*model.DocumentChunk
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) Insert(_ context.Context, chunk *model.DocumentChunk) error {
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Chunks = append(s.Chunks, chunk)
	return nil
}

func (s *MemoryStore) Match(_ context.Context, embedding []float32, threshold float64, count int) ([]model.Match, error) {
	if s.MatchErr != nil {
		return nil, s.MatchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Match
	for _, chunk := range s.Chunks {
		similarity := cosine(embedding, chunk.Embedding)
		if similarity > threshold {
			out = append(out, model.Match{Content: chunk.Content, Metadata: chunk.Metadata, Similarity: similarity})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Chunks)
}

func cosine(a []float32, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RecordingLedger keeps every usage record in memory.
type RecordingLedger struct {
	mu      sync.Mutex
	Records []model.UsageRecord
}

func (l *RecordingLedger) Record(_ context.Context, record *model.UsageRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Records = append(l.Records, *record)
	return nil
}

// Last returns a copy of the most recent record.
func (l *RecordingLedger) Last() (model.UsageRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.Records) == 0 {
		return model.UsageRecord{}, false
	}
	return l.Records[len(l.Records)-1], true
}
