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

// Package cloud contains data structures and utilities for interacting with Google Cloud services.
// This file covers Cloud Storage: the finalize notification delivered over
// Pub/Sub for the document inbox bucket, and the helpers that archive uploads
// and read inbox objects back.
package cloud

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"

	"github.com/wrapperai/wrapper-ai/internal/core/apperr"
)

// GetGCSObjectName returns the chain context key holding the GCSObject being ingested.
func GetGCSObjectName() string {
	return "__GCS__OBJ__"
}

// GCSPubSubNotification is the JSON payload of a Cloud Storage notification.
// Only the fields the inbox reads are declared.
type GCSPubSubNotification struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
	TimeCreated string `json:"timeCreated"`
}

// GCSObject identifies a single object to ingest.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

// ArchivePath returns the object name used for an archived upload. Uploads
// are grouped by day and prefixed with the request id so names never clash.
func ArchivePath(requestID string, filename string, now time.Time) string {
	return path.Join("uploads", now.UTC().Format("2006/01/02"), requestID+"-"+path.Base(filename))
}

// ArchiveUpload stores the original bytes of an upload.
func ArchiveUpload(ctx context.Context, client *storage.Client, bucket string, objectName string, data []byte, mimeType string) error {
	writer := client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	writer.ContentType = mimeType
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return apperr.Wrap(apperr.PersistenceFailure, err, fmt.Sprintf("failed to archive %s", objectName))
	}
	if err := writer.Close(); err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, err, fmt.Sprintf("failed to archive %s", objectName))
	}
	return nil
}

// ReadObject downloads an object, failing with InvalidInput when it is
// larger than limit bytes.
func ReadObject(ctx context.Context, client *storage.Client, obj GCSObject, limit int64) ([]byte, error) {
	reader, err := client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailure, err, fmt.Sprintf("failed to open gs://%s/%s", obj.Bucket, obj.Name))
	}
	defer reader.Close()
	data, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailure, err, fmt.Sprintf("failed to read gs://%s/%s", obj.Bucket, obj.Name))
	}
	if int64(len(data)) > limit {
		return nil, apperr.Newf(apperr.InvalidInput, "%s is larger than %d bytes", obj.Name, limit)
	}
	return data, nil
}
