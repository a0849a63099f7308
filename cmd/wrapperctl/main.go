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

// Command wrapperctl runs the WrapperAI pipelines from a terminal, without
// the HTTP server: repurpose a video, index documents, ask questions and
// generate or run tools.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/wrapperai/wrapper-ai/internal/app"
	"github.com/wrapperai/wrapper-ai/internal/telemetry"
)

func main() {
	// Command output goes to stdout, so logs stay on stderr.
	slog.SetDefault(slog.New(telemetry.NewLogHandler(os.Stderr, slog.LevelWarn)))

	c := &cli{out: os.Stdout, newState: app.InitState}
	if err := newRootCommand(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
