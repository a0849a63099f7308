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

package cloud

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PgvectorStore talks to Postgres directly. It creates the table and the
// similarity function on connect, so the same schema used by the Supabase
// backend works against any Postgres with the vector extension.
type PgvectorStore struct {
	pool          *pgxpool.Pool
	table         string
	matchFunction string
}

// SchemaParams are the names substituted into the embedded migrations.
type SchemaParams struct {
	Table         string
	MatchFunction string
	Dimensions    int32
}

// ConnectPgvector creates a pool and runs the embedded migrations.
func ConnectPgvector(ctx context.Context, databaseURL string, cfg VectorStoreConfig, dimensions int32) (*PgvectorStore, error) {
	if databaseURL == "" {
		return nil, apperr.Missing(EnvDatabaseURL, "pgvector document store")
	}
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.ConfigurationMissing, err, "DATABASE_URL is not a valid connection string")
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, classifyPgError(err, "create pgx pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classifyPgError(err, "ping postgres")
	}

	store := &PgvectorStore{
		pool:          pool,
		table:         pgx.Identifier{cfg.Table}.Sanitize(),
		matchFunction: pgx.Identifier{cfg.MatchFunction}.Sanitize(),
	}
	params := SchemaParams{Table: store.table, MatchFunction: store.matchFunction, Dimensions: dimensions}
	if err := store.runMigrations(ctx, params); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("pgvector store connected", slog.String("addr", poolConfig.ConnConfig.Host), slog.String("table", cfg.Table))
	return store, nil
}

func (s *PgvectorStore) runMigrations(ctx context.Context, params SchemaParams) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		statement, err := RenderSchema(entry.Name(), params)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, statement); err != nil {
			return classifyPgError(err, "migration "+entry.Name())
		}
	}
	return nil
}

// RenderSchema expands one embedded migration with the configured names.
func RenderSchema(name string, params SchemaParams) (string, error) {
	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(data))
	if err != nil {
		return "", fmt.Errorf("parse migration %s: %w", name, err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, params); err != nil {
		return "", fmt.Errorf("render migration %s: %w", name, err)
	}
	return out.String(), nil
}

func (s *PgvectorStore) Name() string {
	return BackendPgvector
}

func (s *PgvectorStore) Insert(ctx context.Context, chunk *model.DocumentChunk) error {
	query := fmt.Sprintf("INSERT INTO %s (id, content, metadata, embedding) VALUES ($1, $2, $3, $4::vector)", s.table)
	if _, err := s.pool.Exec(ctx, query, chunk.Id, chunk.Content, chunk.Metadata, VectorLiteral(chunk.Embedding)); err != nil {
		return classifyPgError(err, "insert chunk")
	}
	return nil
}

func (s *PgvectorStore) Match(ctx context.Context, embedding []float32, threshold float64, count int) ([]model.Match, error) {
	query := fmt.Sprintf("SELECT content, metadata, similarity FROM %s($1::vector, $2, $3)", s.matchFunction)
	rows, err := s.pool.Query(ctx, query, VectorLiteral(embedding), threshold, count)
	if err != nil {
		return nil, classifyPgError(err, "match documents")
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.Content, &m.Metadata, &m.Similarity); err != nil {
			return nil, classifyPgError(err, "scan match")
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err, "match documents")
	}
	return matches, nil
}

func (s *PgvectorStore) Close() error {
	s.pool.Close()
	return nil
}

// VectorLiteral formats an embedding in the pgvector text format.
func VectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// classifyPgError reports invalid passwords and rejected roles as
// StoreAuthError; everything else is a persistence failure.
func classifyPgError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28P01", "28000", "42501":
			return apperr.Wrap(apperr.StoreAuthError, err, "the document store rejected the credentials")
		}
	}
	return apperr.Wrap(apperr.PersistenceFailure, err, "pgvector: "+op+" failed")
}
