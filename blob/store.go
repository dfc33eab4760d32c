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


// Package blob abstracts the object store holding merged document
// payloads.
//
// Documents live under the "merged/" prefix. The current layout keys an
// object by its content fingerprint; an older layout keyed objects by the
// original file name. CandidateKeys yields both so readers fall back to
// the legacy location until the migration pass has moved everything.
package blob

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/inferaflow/docustore/core"
)

// ErrNotFound indicates the object does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ErrPresignUnsupported indicates the backend cannot mint presigned URLs.
var ErrPresignUnsupported = errors.New("presigned URLs not supported by this store")

// Prefix is the key prefix under which merged documents are stored.
const Prefix = "merged/"

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is the object-store boundary for document payloads.
// Implementations must be thread-safe for concurrent use.
type Store interface {
	// Put writes an object, replacing any existing one under the key.
	Put(ctx context.Context, key string, data io.Reader) error

	// Get opens an object for reading. The caller closes the reader.
	// Returns ErrNotFound if the object does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns object metadata without fetching the payload.
	// Returns ErrNotFound if the object does not exist.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// Copy duplicates srcKey to dstKey within the store.
	// Returns ErrNotFound if the source does not exist.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Remove deletes an object. Removing a missing object is not an error.
	Remove(ctx context.Context, key string) error

	// PresignedGetURL mints a time-limited download URL for the object.
	// Returns ErrPresignUnsupported when the backend has no URL scheme.
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// PrimaryKey is the current object key for a document: the content
// fingerprint under the merged prefix.
func PrimaryKey(fingerprint core.Fingerprint) string {
	return Prefix + string(fingerprint)
}

// LegacyKey is the pre-migration object key: the original file name under
// the merged prefix.
func LegacyKey(name string) string {
	return Prefix + name
}

// CandidateKeys returns the keys under which a document may live, primary
// location first. The legacy key is omitted when no file name is known or
// when it coincides with the primary key.
func CandidateKeys(fingerprint core.Fingerprint, name string) []string {
	primary := PrimaryKey(fingerprint)
	if name == "" || LegacyKey(name) == primary {
		return []string{primary}
	}
	return []string{primary, LegacyKey(name)}
}
