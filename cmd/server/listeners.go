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

package main

import (
	"context"
	"log/slog"

	"github.com/wrapperai/wrapper-ai/internal/app"
	"github.com/wrapperai/wrapper-ai/internal/cloud"
)

// SetupListeners attaches the document inbox workflow to its subscription,
// so files dropped in the inbox bucket are indexed like uploads.
func SetupListeners(ctx context.Context, state *app.StateManager) {
	listener, ok := state.Cloud.PubSubListeners[cloud.DocumentInboxListener]
	if !ok {
		slog.InfoContext(ctx, "no document inbox subscription configured")
		return
	}
	if state.Cloud.StorageClient == nil {
		slog.WarnContext(ctx, "document inbox needs a storage client; listener not started")
		return
	}
	listener.SetCommand(state.Inbox)
	listener.Listen(ctx)
}
