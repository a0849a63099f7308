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
// repurpose and ingestion workflows are assembled from. This file defines the
// interfaces every piece of a workflow implements.
//
// A workflow is a Chain of Commands sharing one Context:
//   - each Command reads its input from the Context, does one step (resolve a
//     URL, acquire a transcript, chunk a document...) and writes its output
//     back;
//   - a Chain is itself a Command, so chains nest, which is how the usage
//     recorder runs after an inner chain whatever its outcome;
//   - failures are recorded in the Context rather than returned, and the
//     chain decides whether the remaining commands still run.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the default piping keys of a BaseChain.
const (
	// CtxIn holds the primary input of a command. After every command the
	// chain replaces it with whatever the command left under CtxOut; a command
	// that wrote nothing, including one that failed, leaves CtxIn empty for the
	// next command. Commands that must survive a failed predecessor read a
	// named key instead (see BaseCommand.InputParamName).
	CtxIn = "__IN__"
	// CtxOut is where a command writes its primary output.
	CtxOut = "__OUT__"
)

// Context is the state shared by the commands of one workflow run: the
// values they exchange, the errors they record, the temporary files they
// create and the Go context carrying cancellation and the current span.
type Context interface {
	// SetContext sets the Go context. The chain swaps in a child context for
	// every command so its span becomes the parent of the command's calls.
	SetContext(context context.Context)

	// GetContext returns the Go context of the command currently running.
	GetContext() context.Context

	// Add stores value under key and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes key.
	Remove(key string)

	// AddError records a failure. The key is the name of the failing command;
	// a nil err is ignored.
	AddError(key string, err error)

	// GetErrors returns the recorded errors keyed by command name.
	GetErrors() map[string]error

	// FirstError returns the earliest recorded error, or nil. Services return
	// it to their callers, so it decides the HTTP status of a failed request.
	FirstError() error

	// HasErrors reports whether any command failed.
	HasErrors() bool

	// AddTempFile registers a file to be removed by Close.
	AddTempFile(file string)

	// GetTempFiles returns the registered files.
	GetTempFiles() []string

	// Close removes the temporary files. Services defer it right after
	// creating the context.
	Close()
}

// Executable is anything that can run against a Context.
type Executable interface {
	// Execute runs the step. It reads its inputs from context and records
	// either an output or an error there; it never panics on bad input.
	Execute(context Context)
}

// Command is a single named workflow step with its own telemetry.
type Command interface {
	Executable

	// GetName returns the command name used for spans, counters and as the
	// key of the errors it records.
	GetName() string

	// GetInputParam returns the key the command reads its primary input from.
	GetInputParam() string

	// GetOutputParam returns the key the command writes its primary output to.
	GetOutputParam() string

	// IsExecutable reports whether the context holds what the command needs.
	// The chain skips, without an error, commands that are not executable;
	// optional steps such as the upload archive rely on this.
	IsExecutable(context Context) bool

	// GetTracer returns the tracer the command's spans are created with.
	GetTracer() trace.Tracer

	// GetMeter returns the meter the command's counters belong to.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the `<name>.counter.success` counter.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the `<name>.counter.error` counter.
	GetErrorCounter() metric.Int64Counter
}

// Chain is a command made of other commands, run in the order they were
// added.
type Chain interface {
	Command

	// ContinueOnFailure keeps running the remaining commands after one of
	// them recorded an error. Commands that depend on piped input are still
	// skipped, since a failed command pipes nothing.
	ContinueOnFailure(bool) Chain

	// AddCommand appends command to the chain.
	AddCommand(command Command) Chain
}
