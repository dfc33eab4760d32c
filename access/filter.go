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


package access

import (
	"context"

	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage"
)

// Filter answers which file records a user may see. A record is visible
// when the user owns it, it is public, or its org tag is in the user's
// effective tag set.
type Filter struct {
	files    storage.FileRepository
	resolver *Resolver
}

// NewFilter creates a Filter over the given repository and resolver.
func NewFilter(files storage.FileRepository, resolver *Resolver) *Filter {
	return &Filter{files: files, resolver: resolver}
}

// ListVisible returns every record visible to the user, newest first.
func (f *Filter) ListVisible(ctx context.Context, userID string, assigned []string) ([]*core.FileRecord, error) {
	effective, err := f.resolver.EffectiveTags(ctx, userID, assigned)
	if err != nil {
		return nil, err
	}

	if len(effective) == 0 {
		return f.files.ListOwnerOrPublic(ctx, userID)
	}
	return f.files.ListAccessible(ctx, userID, effective)
}

// CanRead reports whether the user may read the given record.
func (f *Filter) CanRead(ctx context.Context, record *core.FileRecord, userID string, assigned []string) (bool, error) {
	if record.OwnerID == userID || record.IsPublic {
		return true, nil
	}
	if record.OrgTag == "" {
		return false, nil
	}

	effective, err := f.resolver.EffectiveTags(ctx, userID, assigned)
	if err != nil {
		return false, err
	}
	for _, tag := range effective {
		if tag == record.OrgTag {
			return true, nil
		}
	}
	return false, nil
}
