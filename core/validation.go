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

import (
	"fmt"
	"strings"
)

// keySeparator joins the segments of composite storage keys. Identifiers
// that end up in key segments (owner IDs, tag IDs) must not contain it,
// or prefix scans would leak records across identifier boundaries.
const keySeparator = ":"

// ValidateFingerprint checks that a fingerprint is a 32-character lowercase
// hex string, i.e. an MD5 digest in its canonical textual form.
func ValidateFingerprint(fp Fingerprint) error {
	if len(fp) != 32 {
		return fmt.Errorf("%w: got %d characters", ErrInvalidFingerprint, len(fp))
	}
	for _, c := range fp {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidFingerprint, c)
		}
	}
	return nil
}

// ValidateFileRecord validates a FileRecord according to domain rules.
//
// Validation rules:
//   - Fingerprint must be a canonical MD5 hex digest
//   - OwnerID must not be empty
//   - Status must be a known ProcessingStatus
//   - ProcessingError must be set if and only if Status is StatusFailed
//
// NOT validated (populated by storage):
//   - Id (0 is valid before the sequence assigns one)
//   - CreatedAt / StatusUpdatedAt timestamps
func ValidateFileRecord(record *FileRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidFileRecord)
	}
	if err := ValidateFingerprint(record.Fingerprint); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFileRecord, err)
	}
	if record.OwnerID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFileRecord, ErrEmptyOwner)
	}
	if strings.Contains(record.OwnerID, keySeparator) {
		return fmt.Errorf("%w: owner id must not contain %q", ErrInvalidFileRecord, keySeparator)
	}
	if strings.Contains(record.OrgTag, keySeparator) {
		return fmt.Errorf("%w: org tag must not contain %q", ErrInvalidFileRecord, keySeparator)
	}
	if !record.Status.IsValid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidFileRecord, ErrInvalidStatus, record.Status)
	}
	if record.Status == StatusFailed && record.ProcessingError == "" {
		return fmt.Errorf("%w: failed record missing processing error", ErrInvalidFileRecord)
	}
	if record.Status != StatusFailed && record.ProcessingError != "" {
		return fmt.Errorf("%w: processing error set on non-failed record", ErrInvalidFileRecord)
	}
	return nil
}

// ValidateChunk validates a ChunkRecord according to domain rules.
//
// The Vector field is not validated; it stays empty until the embedding
// stage runs.
func ValidateChunk(chunk *ChunkRecord) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if err := ValidateFingerprint(chunk.Fingerprint); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidChunk, chunk.Index)
	}
	if chunk.Content == "" {
		return fmt.Errorf("%w: content cannot be empty", ErrInvalidChunk)
	}
	return nil
}

// ValidateTag validates an OrganizationTag according to domain rules.
// Acyclicity of the full forest is enforced at resolution time; here only
// the immediate self-reference is rejected.
func ValidateTag(tag *OrganizationTag) error {
	if tag == nil {
		return fmt.Errorf("%w: tag is nil", ErrInvalidTag)
	}
	if tag.TagID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTag, ErrEmptyTagID)
	}
	if strings.Contains(tag.TagID, keySeparator) {
		return fmt.Errorf("%w: tag id must not contain %q", ErrInvalidTag, keySeparator)
	}
	if strings.Contains(tag.ParentTag, keySeparator) {
		return fmt.Errorf("%w: parent tag must not contain %q", ErrInvalidTag, keySeparator)
	}
	if tag.ParentTag == tag.TagID {
		return fmt.Errorf("%w: tag %q is its own parent", ErrInvalidTag, tag.TagID)
	}
	return nil
}
