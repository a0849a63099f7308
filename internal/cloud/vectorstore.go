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

// Package cloud provides components for interacting with external services.
// This file defines the document store used by ingestion and retrieval, and
// its default implementation on top of the Supabase REST API.
//
// The store holds one row per chunk: the chunk text, its metadata and its
// embedding. Retrieval calls a similarity function that returns the rows
// above a threshold, best first.
package cloud

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/supabase-community/supabase-go"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// VectorStore persists embedded chunks and answers similarity queries.
type VectorStore interface {
	Name() string
	Insert(ctx context.Context, chunk *model.DocumentChunk) error
	Match(ctx context.Context, embedding []float32, threshold float64, count int) ([]model.Match, error)
	Close() error
}

// SupabaseStore talks to a Supabase project through PostgREST.
type SupabaseStore struct {
	Client        *supabase.Client
	Table         string
	MatchFunction string
}

// NewSupabaseStore creates the store. Both the URL and the key are required.
func NewSupabaseStore(url string, key string, table string, matchFunction string) (*SupabaseStore, error) {
	if url == "" {
		return nil, apperr.Missing(EnvSupabaseURL, "document store")
	}
	if key == "" {
		return nil, apperr.Missing(EnvSupabaseKey, "document store")
	}
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailure, err, "could not create the supabase client")
	}
	return &SupabaseStore{Client: client, Table: table, MatchFunction: matchFunction}, nil
}

func (s *SupabaseStore) Name() string {
	return BackendSupabase
}

type supabaseRow struct {
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding"`
}

// Insert writes a single chunk. The row id is generated by the database.
// The client takes no context, so a request that is already cancelled is
// stopped before the round-trip.
func (s *SupabaseStore) Insert(ctx context.Context, chunk *model.DocumentChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := supabaseRow{Content: chunk.Content, Metadata: chunk.Metadata, Embedding: chunk.Embedding}
	_, _, err := s.Client.From(s.Table).Insert(row, false, "", "minimal", "").Execute()
	if err != nil {
		return classifySupabaseMessage(err.Error(), err)
	}
	return nil
}

type matchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
}

// Match calls the similarity function through the RPC endpoint.
func (s *SupabaseStore) Match(ctx context.Context, embedding []float32, threshold float64, count int) ([]model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := s.Client.Rpc(s.MatchFunction, "", matchRequest{
		QueryEmbedding: embedding,
		MatchThreshold: threshold,
		MatchCount:     count,
	})
	return ParseMatchResponse(body)
}

func (s *SupabaseStore) Close() error {
	return nil
}

type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint"`
}

// ParseMatchResponse decodes the body returned by the similarity RPC. The
// SDK returns the raw body, so PostgREST error objects are detected here.
func ParseMatchResponse(body string) ([]model.Match, error) {
	trimmed := strings.TrimSpace(body)
	switch {
	case trimmed == "":
		return nil, apperr.New(apperr.PersistenceFailure, "the document search returned no response")
	case strings.HasPrefix(trimmed, "{"):
		var pgErr postgrestError
		if err := json.Unmarshal([]byte(trimmed), &pgErr); err != nil {
			return nil, apperr.Wrap(apperr.PersistenceFailure, err, "the document search returned an unreadable response")
		}
		return nil, classifySupabaseMessage(pgErr.Code+" "+pgErr.Message, apperr.Newf(apperr.PersistenceFailure, "(%s) %s", pgErr.Code, pgErr.Message))
	}
	var matches []model.Match
	if err := json.Unmarshal([]byte(trimmed), &matches); err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailure, err, "the document search returned an unreadable response")
	}
	return matches, nil
}

// classifySupabaseMessage maps PostgREST failures to error kinds. PGRST3xx
// codes are JWT failures; 42501 is a row level security rejection.
func classifySupabaseMessage(message string, cause error) error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(message, "PGRST3"), strings.Contains(lower, "jwt"),
		strings.Contains(lower, "invalid api key"), strings.Contains(message, "42501"):
		return apperr.Wrap(apperr.StoreAuthError, cause, "the document store rejected the credentials")
	}
	return apperr.Wrap(apperr.PersistenceFailure, cause, "the document store request failed")
}
