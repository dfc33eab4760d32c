// Copyright 2025 Inferaflow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedding

import (
	"errors"
	"fmt"
)

// ErrNoTexts indicates Embed was called with an empty input slice.
var ErrNoTexts = errors.New("no texts to embed")

// ProviderError reports a failed provider exchange after the retry budget
// was exhausted. It carries the last HTTP status and response body so
// callers can surface what the provider actually said.
type ProviderError struct {
	// StatusCode is the HTTP status of the last failed attempt, or 0 when
	// the failure happened before a response was received.
	StatusCode int

	// Body is the raw response body of the last failed attempt, truncated
	// for logging.
	Body string

	// Attempts is the number of attempts made before giving up.
	Attempts int

	// Err is the underlying transport or protocol error, if any.
	Err error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding provider returned status %d after %d attempts: %s", e.StatusCode, e.Attempts, e.Body)
	}
	return fmt.Sprintf("embedding provider unreachable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FormatError reports a well-formed HTTP exchange whose payload did not
// match the expected shape. Format errors are permanent and are never
// retried, since resending the same request cannot fix a malformed
// response contract.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "embedding response format error: " + e.Reason
}
