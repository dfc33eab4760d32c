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
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage"
)

// TagGraph resolves ancestor chains over the organization tag hierarchy.
// It is safe for concurrent use as long as the underlying repository is.
type TagGraph struct {
	tags   storage.TagRepository
	logger *slog.Logger
}

// NewTagGraph creates a TagGraph backed by the given repository.
func NewTagGraph(tags storage.TagRepository) *TagGraph {
	return &TagGraph{
		tags:   tags,
		logger: slog.Default().With("component", "tag-graph"),
	}
}

// ResolveAncestors walks from tagID to its root and returns the chain in
// leaf-to-root order, starting with tagID itself.
// Returns core.ErrNotFound if tagID does not exist, core.ErrCycleDetected
// if the parent chain loops, and core.ErrDanglingParent if a parent
// reference points at a tag that no longer exists.
func (g *TagGraph) ResolveAncestors(ctx context.Context, tagID string) ([]string, error) {
	if tagID == "" {
		return nil, core.ErrEmptyTagID
	}

	tag, err := g.tags.Get(ctx, tagID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("tag %q: %w", tagID, core.ErrNotFound)
		}
		return nil, err
	}

	chain := []string{tag.TagID}
	seen := map[string]bool{tag.TagID: true}

	for !tag.IsRoot() {
		parentID := tag.ParentTag
		if seen[parentID] {
			g.logger.Error("tag hierarchy contains a cycle", "tag", tagID, "repeated", parentID)
			return nil, fmt.Errorf("tag %q: %w", parentID, core.ErrCycleDetected)
		}

		tag, err = g.tags.Get(ctx, parentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				g.logger.Error("tag references missing parent", "tag", chain[len(chain)-1], "parent", parentID)
				return nil, fmt.Errorf("parent tag %q: %w", parentID, core.ErrDanglingParent)
			}
			return nil, err
		}

		chain = append(chain, tag.TagID)
		seen[tag.TagID] = true
	}

	return chain, nil
}

// ResolveEffectiveTags expands the assigned tags into the full effective
// set: every assigned tag plus all of its ancestors, deduplicated and
// sorted. Unknown assigned tags and broken chains fail the whole
// resolution rather than silently shrinking a user's visibility.
func (g *TagGraph) ResolveEffectiveTags(ctx context.Context, assigned []string) ([]string, error) {
	if len(assigned) == 0 {
		return nil, nil
	}

	effective := make(map[string]bool)
	for _, tagID := range assigned {
		chain, err := g.ResolveAncestors(ctx, tagID)
		if err != nil {
			return nil, err
		}
		for _, id := range chain {
			effective[id] = true
		}
	}

	result := make([]string, 0, len(effective))
	for id := range effective {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}
