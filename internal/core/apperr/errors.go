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

// Package apperr defines the error taxonomy shared by every layer of the
// application. Errors are classified once, at the boundary where the cause is
// known (a provider SDK, a subprocess, the document store), and carried as a
// typed value up to the HTTP layer, which only has to look at the Kind to pick
// a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of failure with a stable external meaning.
type Kind int

const (
	Internal Kind = iota
	InvalidInput
	TranscriptUnavailable
	EmptyContent
	NoExtractableText
	QuotaExceeded
	ProviderUnavailable
	MalformedResponse
	StoreAuthError
	PersistenceFailure
	ConfigurationMissing
)

var kindNames = map[Kind]string{
	Internal:              "Internal",
	InvalidInput:          "InvalidInput",
	TranscriptUnavailable: "TranscriptUnavailable",
	EmptyContent:          "EmptyContent",
	NoExtractableText:     "NoExtractableText",
	QuotaExceeded:         "QuotaExceeded",
	ProviderUnavailable:   "ProviderUnavailable",
	MalformedResponse:     "MalformedResponse",
	StoreAuthError:        "StoreAuthError",
	PersistenceFailure:    "PersistenceFailure",
	ConfigurationMissing:  "ConfigurationMissing",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified failure. Message is safe to show to a caller unless
// the Kind is one whose details must stay server side (see PublicMessage).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil so call sites can wrap unconditionally.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// Missing reports that a required setting is absent. The setting name is part
// of the public message so operators know what to fix.
func Missing(setting string, purpose string) *Error {
	return Newf(ConfigurationMissing, "%s is not configured (%s)", purpose, setting)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the Kind of the first classified error in err's chain, or
// Internal when nothing in the chain has been classified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsTransient reports whether err is expected to clear up on retry.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case QuotaExceeded, ProviderUnavailable:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a Kind to the status code returned to HTTP callers.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidInput:
		return http.StatusBadRequest
	case TranscriptUnavailable, EmptyContent, NoExtractableText:
		return http.StatusUnprocessableEntity
	case QuotaExceeded:
		return http.StatusTooManyRequests
	case ProviderUnavailable:
		return http.StatusServiceUnavailable
	case StoreAuthError:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

const (
	genericInternalMessage  = "internal server error"
	genericMalformedMessage = "the AI provider returned an invalid response, please try again"
)

// PublicMessage returns the message that may be sent to an end user. Raw
// provider output and unclassified causes never leave the process.
func PublicMessage(err error) string {
	e, ok := As(err)
	if !ok {
		return genericInternalMessage
	}
	switch e.Kind {
	case Internal:
		return genericInternalMessage
	case MalformedResponse:
		return genericMalformedMessage
	default:
		return e.Message
	}
}
