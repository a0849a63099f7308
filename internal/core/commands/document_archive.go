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
	"log/slog"
	"time"

	"cloud.google.com/go/storage"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// DocumentArchive copies the original upload to the archive bucket. The
// archive is optional: a failed copy is logged and ingestion carries on.
// Documents that came from the inbox bucket are already stored and skipped.
type DocumentArchive struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
}

func NewDocumentArchive(name string, client *storage.Client, bucket string) *DocumentArchive {
	out := &DocumentArchive{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
	out.InputParamName = KeyDocument
	return out
}

func (c *DocumentArchive) IsExecutable(context cor.Context) bool {
	return c.client != nil && c.bucket != "" && gcsObjectOf(context) == nil && c.BaseCommand.IsExecutable(context)
}

func (c *DocumentArchive) Execute(context cor.Context) {
	doc := context.Get(c.GetInputParam()).(*model.Document)
	ctx := context.GetContext()

	objectName := cloud.ArchivePath(usageOf(context).RequestId, doc.Name, time.Now())
	if err := cloud.ArchiveUpload(ctx, c.client, c.bucket, objectName, doc.Data, doc.MIMEType); err != nil {
		slog.WarnContext(ctx, "archive failed", slog.String("document", doc.Name), slog.Any("error", err))
		if c.ErrorCounter != nil {
			c.ErrorCounter.Add(ctx, 1)
		}
		return
	}
	slog.InfoContext(ctx, "document archived", slog.String("object", "gs://"+c.bucket+"/"+objectName))
	c.Succeed(context, doc)
}
