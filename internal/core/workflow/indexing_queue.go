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

package workflow

import (
	goctx "context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// ErrQueueStopped is returned by Index once Stop has been called.
var ErrQueueStopped = apperr.New(apperr.Internal, "the indexing queue is stopped")

type indexJob struct {
	ctx    goctx.Context
	chunk  *model.DocumentChunk
	result chan error
}

// IndexingQueue embeds and stores chunks in the background, paced by a
// token bucket so bursts of uploads stay under the embedding quota. Uploads
// from every request share the same queue and workers.
type IndexingQueue struct {
	embedder cloud.Embedder
	store    cloud.VectorStore
	limiter  *rate.Limiter
	workers  int
	jobs     chan indexJob

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup

	saved  metric.Int64Counter
	failed metric.Int64Counter
}

// NewIndexingQueue creates a queue from the ingestion settings. A non
// positive rate disables pacing.
func NewIndexingQueue(embedder cloud.Embedder, store cloud.VectorStore, config cloud.Ingestion) *IndexingQueue {
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	workers := config.Concurrency
	if workers <= 0 {
		workers = 1
	}
	queueSize := config.QueueSize
	if queueSize < 0 {
		queueSize = 0
	}

	meter := otel.Meter(cor.MeterName)
	q := &IndexingQueue{
		embedder: embedder,
		store:    store,
		limiter:  rate.NewLimiter(limit, burst),
		workers:  workers,
		jobs:     make(chan indexJob, queueSize),
		stop:     make(chan struct{}),
	}
	var err error
	if q.saved, err = meter.Int64Counter("ingest.chunks.saved"); err != nil {
		slog.Warn("error creating saved chunk counter", slog.Any("error", err))
	}
	if q.failed, err = meter.Int64Counter("ingest.chunks.failed"); err != nil {
		slog.Warn("error creating failed chunk counter", slog.Any("error", err))
	}
	return q
}

// Start launches the workers. Calling it more than once has no effect.
func (q *IndexingQueue) Start() {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work()
		}
	})
}

// Stop ends the workers after the chunk they are working on. Pending and
// later calls to Index return ErrQueueStopped.
func (q *IndexingQueue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stop)
	})
	q.wg.Wait()
}

// Index queues chunk and waits until it is stored, it fails, or ctx ends.
func (q *IndexingQueue) Index(ctx goctx.Context, chunk *model.DocumentChunk) error {
	job := indexJob{ctx: ctx, chunk: chunk, result: make(chan error, 1)}
	select {
	case <-q.stop:
		return ErrQueueStopped
	default:
	}
	select {
	case q.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stop:
		return ErrQueueStopped
	}
	select {
	case err := <-job.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stop:
		return ErrQueueStopped
	}
}

func (q *IndexingQueue) work() {
	defer q.wg.Done()
	tracer := otel.Tracer("indexing-queue")
	for {
		select {
		case <-q.stop:
			return
		case job := <-q.jobs:
			traceCtx, span := tracer.Start(job.ctx, "index-chunk")
			span.SetAttributes(attribute.String("chunk_id", job.chunk.Id))
			err := q.process(traceCtx, job.chunk)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				q.add(job.ctx, q.failed)
			} else {
				span.SetStatus(codes.Ok, "chunk stored")
				q.add(job.ctx, q.saved)
			}
			span.End()
			job.result <- err
		}
	}
}

func (q *IndexingQueue) process(ctx goctx.Context, chunk *model.DocumentChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := q.limiter.Wait(ctx); err != nil {
		return err
	}
	embedding, err := q.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		return err
	}
	if len(embedding) == 0 {
		return apperr.New(apperr.MalformedResponse, "the embedding model returned an empty vector")
	}
	chunk.Embedding = embedding
	if err := q.store.Insert(ctx, chunk); err != nil {
		return fmt.Errorf("%s insert: %w", q.store.Name(), err)
	}
	return nil
}

func (q *IndexingQueue) add(ctx goctx.Context, counter metric.Int64Counter) {
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attribute.String("store", q.store.Name())))
	}
}
