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

// Package cor (Chain of Responsibility) provides the building blocks the
// workflows are assembled from. This file defines BaseContext, the Context
// every service creates for one workflow run:
//   - the values commands exchange, including the request, the usage record
//     and the piped CtxIn/CtxOut values;
//   - the errors they record, keyed by command name and kept in recording
//     order so FirstError is deterministic;
//   - the temporary files they create, removed by Close;
//   - the Go context of the command currently running.
package cor

import (
	"context"
	"log/slog"
	"os"
)

// BaseContext is the default implementation of the Context interface. It is
// not safe for concurrent use; a workflow run owns its context.
type BaseContext struct {
	data       map[string]interface{} // Values exchanged by the commands.
	errors     map[string]error       // Errors keyed by the name of the failing command.
	errorOrder []error                // The same errors in the order they were recorded.
	tempFiles  []string               // Files removed by Close.
	context    context.Context        // Go context of the command currently running.
}

// NewBaseContext returns an empty context. The caller sets the Go context
// with SetContext before running a chain against it.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
	}
}

func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes the registered temporary files.
func (c *BaseContext) Close() {
	for _, file := range c.GetTempFiles() {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temporary file", slog.String("file", file), slog.Any("error", err))
		}
	}
	c.tempFiles = c.tempFiles[:0]
}

func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

func (c *BaseContext) AddTempFile(file string) {
	c.tempFiles = append(c.tempFiles, file)
}

func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

// AddError records err under key. A second error from the same command
// replaces the first in GetErrors but both stay in recording order.
func (c *BaseContext) AddError(key string, err error) {
	if err == nil {
		return
	}
	c.errors[key] = err
	c.errorOrder = append(c.errorOrder, err)
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

func (c *BaseContext) FirstError() error {
	if len(c.errorOrder) == 0 {
		return nil
	}
	return c.errorOrder[0]
}

func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
