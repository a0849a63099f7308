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
	"path"

	"cloud.google.com/go/storage"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
	"github.com/wrapperai/wrapper-ai/internal/core/model"
)

// GCSToDocument downloads an inbox object into memory so it can run through
// the same steps as an HTTP upload.
type GCSToDocument struct {
	cor.BaseCommand
	client   *storage.Client
	maxBytes int64
}

func NewGCSToDocument(name string, client *storage.Client, maxBytes int64) *GCSToDocument {
	return &GCSToDocument{BaseCommand: *cor.NewBaseCommand(name), client: client, maxBytes: maxBytes}
}

func (c *GCSToDocument) Execute(context cor.Context) {
	obj := context.Get(c.GetInputParam()).(*cloud.GCSObject)
	ctx := context.GetContext()

	data, err := cloud.ReadObject(ctx, c.client, *obj, c.maxBytes)
	if err != nil {
		c.Fail(context, err)
		return
	}
	slog.InfoContext(ctx, "inbox object downloaded",
		slog.String("object", "gs://"+obj.Bucket+"/"+obj.Name), slog.Int("bytes", len(data)))

	doc := &model.Document{Name: path.Base(obj.Name), MIMEType: obj.MIMEType, Data: data}
	context.Add(KeyDocument, doc)
	c.Succeed(context, doc)
}
