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

// Package test provides utility functions and in-memory fakes to support the
// application's test suite: a cached test configuration, sample storage
// notifications, scripted generation providers, a deterministic embedder and
// an in-memory vector store.
package test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// StateManager caches the test configuration so it is loaded once per run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestInboxMessageText returns the payload of a finalize notification for
// a PDF dropped in the inbox bucket.
func GetTestInboxMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "wrapper_ai_inbox/tenders/rfp-2024.pdf/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/wrapper_ai_inbox/o/tenders%2Frfp-2024.pdf",
  "name": "tenders/rfp-2024.pdf",
  "bucket": "wrapper_ai_inbox",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "application/pdf",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "size": "48213",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
}`
}

// SetupOS points the configuration loader at the test configuration files.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig returns the cached test configuration, loading it on first use.
// Missing files are skipped, so packages without a configs directory get the
// built in defaults.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// NewChainContext returns a chain context bound to ctx and carrying a fresh
// usage record under usageKey.
func NewChainContext(ctx context.Context, usageKey string, operation string) (cor.Context, *model.UsageRecord) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	usage := model.NewUsageRecord(operation, "")
	chCtx.Add(usageKey, usage)
	return chCtx, usage
}
