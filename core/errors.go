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


package core

import "errors"

// Domain errors
var (
	// ErrNotFound indicates a referenced file, tag or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied indicates the caller is not authorized for the target record.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCycleDetected indicates a corrupt organization tag hierarchy.
	ErrCycleDetected = errors.New("cycle detected in tag hierarchy")

	// ErrDanglingParent indicates a tag references a parent that does not exist.
	ErrDanglingParent = errors.New("dangling parent tag reference")

	// ErrIllegalTransition indicates a processing status change outside the transition table.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrInvalidStatus indicates an unknown ProcessingStatus value.
	ErrInvalidStatus = errors.New("invalid processing status")

	// ErrInvalidFileRecord indicates a FileRecord failed validation.
	ErrInvalidFileRecord = errors.New("invalid file record")

	// ErrInvalidChunk indicates a ChunkRecord failed validation.
	ErrInvalidChunk = errors.New("invalid chunk record")

	// ErrInvalidTag indicates an OrganizationTag failed validation.
	ErrInvalidTag = errors.New("invalid organization tag")

	// ErrInvalidFingerprint indicates a fingerprint is not 32 hex characters.
	ErrInvalidFingerprint = errors.New("fingerprint must be 32 hex characters")

	// ErrEmptyOwner indicates a record is missing its owning user.
	ErrEmptyOwner = errors.New("owner id cannot be empty")

	// ErrEmptyTagID indicates a tag is missing its identifier.
	ErrEmptyTagID = errors.New("tag id cannot be empty")
)
