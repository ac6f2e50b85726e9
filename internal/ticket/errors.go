// Copyright 2026 The genomepath-htsget Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ticket

import (
	"fmt"
	"net/http"
)

// Error is the htsget-formatted error envelope: a named code with an HTTP
// status and a human-readable cause.
type Error struct {
	Name   string
	Status int
	Cause  error
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s (%d): %v", err.Name, err.Status, err.Cause)
}

func (err *Error) Unwrap() error {
	return err.Cause
}

func newError(name string, status int, context string, cause error) *Error {
	return &Error{name, status, fmt.Errorf("%s: %v", context, cause)}
}

func NewInvalidInputError(context string, cause error) *Error {
	return newError("InvalidInput", http.StatusBadRequest, context, cause)
}

func NewInvalidAuthenticationError(context string, cause error) *Error {
	return newError("InvalidAuthentication", http.StatusUnauthorized, context, cause)
}

func NewPermissionDeniedError(context string, cause error) *Error {
	return newError("PermissionDenied", http.StatusForbidden, context, cause)
}

func NewNotFoundError(context string, cause error) *Error {
	return newError("NotFound", http.StatusNotFound, context, cause)
}

func NewUnsupportedFormatError(context string, cause error) *Error {
	return newError("UnsupportedFormat", http.StatusBadRequest, context, cause)
}

func NewInvalidRangeError(context string, cause error) *Error {
	return newError("InvalidRange", http.StatusBadRequest, context, cause)
}

func NewIndexCorruptError(context string, cause error) *Error {
	return newError("IndexCorrupt", http.StatusInternalServerError, context, cause)
}

func NewIoError(context string, cause error) *Error {
	return newError("IoError", http.StatusInternalServerError, context, cause)
}

func NewInternalError(context string, cause error) *Error {
	return newError("InternalError", http.StatusInternalServerError, context, cause)
}

// AsResponse renders err as the htsget JSON error body alongside its HTTP
// status. Any error that isn't already a *Error is reported as
// InternalError, matching the "any unclassified fault" catch-all.
func AsResponse(err error) (status int, body map[string]interface{}) {
	e, ok := err.(*Error)
	if !ok {
		e = NewInternalError("unclassified fault", err)
	}
	return e.Status, map[string]interface{}{
		"htsget": map[string]interface{}{
			"error":   e.Name,
			"message": fmt.Sprintf("%s: %v", http.StatusText(e.Status), e.Cause),
		},
	}
}
