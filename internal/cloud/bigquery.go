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
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"

	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// UsageLedger stores one record per request.
type UsageLedger interface {
	Record(ctx context.Context, record *model.UsageRecord) error
}

// BigQueryLedger appends usage records to a BigQuery table.
type BigQueryLedger struct {
	Client  *bigquery.Client
	Dataset string
	Table   string
}

func (l *BigQueryLedger) Record(ctx context.Context, record *model.UsageRecord) error {
	inserter := l.Client.Dataset(l.Dataset).Table(l.Table).Inserter()
	if err := inserter.Put(ctx, record); err != nil {
		return fmt.Errorf("bigquery insert failed for request %s: %w", record.RequestId, err)
	}
	return nil
}

// RecordUsage writes record when a ledger is configured. A failed write is
// logged and otherwise ignored.
func RecordUsage(ctx context.Context, ledger UsageLedger, record *model.UsageRecord) {
	if ledger == nil || record == nil {
		return
	}
	if err := ledger.Record(ctx, record); err != nil {
		slog.WarnContext(ctx, "usage: failed to record request",
			slog.String("request_id", record.RequestId),
			slog.String("operation", record.Operation),
			slog.Any("error", err))
	}
}
