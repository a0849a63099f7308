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
	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// UsageRecorder closes the run's usage record and writes it to the ledger.
// It runs after failed steps too and never records an error of its own.
type UsageRecorder struct {
	cor.BaseCommand
	ledger cloud.UsageLedger
}

func NewUsageRecorder(name string, ledger cloud.UsageLedger) *UsageRecorder {
	out := &UsageRecorder{BaseCommand: *cor.NewBaseCommand(name), ledger: ledger}
	out.InputParamName = KeyUsage
	return out
}

func (c *UsageRecorder) Execute(context cor.Context) {
	record := context.Get(c.GetInputParam()).(*model.UsageRecord)
	if err := context.FirstError(); err != nil {
		record.Succeeded = false
		record.ErrorKind = apperr.KindOf(err).String()
	} else {
		record.Succeeded = true
	}
	cloud.RecordUsage(context.GetContext(), c.ledger, record)
	if c.SuccessCounter != nil {
		c.SuccessCounter.Add(context.GetContext(), 1)
	}
}
