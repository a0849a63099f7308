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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wrapperai/wrapper-ai/internal/cloud"
	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
	"github.com/wrapperai/wrapper-ai/internal/core/cor"
)

// DocumentTriggerToGCSObject parses the Cloud Storage notification received
// for the inbox bucket and keeps the bucket, the object name and the content
// type. Folder placeholders are rejected.
type DocumentTriggerToGCSObject struct {
	cor.BaseCommand
}

func NewDocumentTriggerToGCSObject(name string) *DocumentTriggerToGCSObject {
	return &DocumentTriggerToGCSObject{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *DocumentTriggerToGCSObject) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var out cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.Fail(context, apperr.Wrap(apperr.InvalidInput, fmt.Errorf("failed to unmarshal GCS notification: %w", err), "invalid storage notification"))
		return
	}
	if out.Bucket == "" || out.Name == "" || strings.HasSuffix(out.Name, "/") {
		c.Fail(context, apperr.Newf(apperr.InvalidInput, "notification does not name an object: %q", out.Name))
		return
	}

	msg := &cloud.GCSObject{Bucket: out.Bucket, Name: out.Name, MIMEType: out.ContentType}
	context.Add(cloud.GetGCSObjectName(), msg)
	usageOf(context).Subject = out.Name
	c.Succeed(context, msg)
}
