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

package services

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

const (
	DefaultStatsDays = 7
	MaxStatsDays     = 365
)

// UsageService reads aggregates back from the usage ledger table.
type UsageService struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	UsageTable     string
}

// Stats summarizes the requests of the last days days. Zero selects
// DefaultStatsDays.
func (s *UsageService) Stats(ctx context.Context, days int) (*model.UsageStats, error) {
	if days == 0 {
		days = DefaultStatsDays
	}
	if days < 0 || days > MaxStatsDays {
		return nil, apperr.Newf(apperr.InvalidInput, "days must be between 1 and %d", MaxStatsDays)
	}
	if s.BigqueryClient == nil {
		return nil, apperr.Missing(cloud.EnvGoogleProject, "usage statistics")
	}
	fqTable := strings.Replace(s.BigqueryClient.Dataset(s.DatasetName).Table(s.UsageTable).FullyQualifiedName(), ":", ".", -1)

	operations, err := readRows[model.UsageSummary](ctx, s.BigqueryClient, fmt.Sprintf(QryUsageByOperation, fqTable), days)
	if err != nil {
		return nil, err
	}
	strategies, err := readRows[model.StrategySummary](ctx, s.BigqueryClient, fmt.Sprintf(QryRepurposeByStrategy, fqTable), days)
	if err != nil {
		return nil, err
	}
	return &model.UsageStats{Days: days, Operations: operations, Strategies: strategies}, nil
}

func readRows[T any](ctx context.Context, client *bigquery.Client, queryText string, days int) ([]*T, error) {
	q := client.Query(queryText)
	q.Parameters = []bigquery.QueryParameter{{Name: "days", Value: days}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailure, err, "failed to read from BigQuery")
	}
	out := make([]*T, 0)
	for {
		r := new(T)
		err := itr.Next(r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.PersistenceFailure, err, "failed to iterate results")
		}
		out = append(out, r)
	}
	return out, nil
}
