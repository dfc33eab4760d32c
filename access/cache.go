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
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Resolver memoizes per-user effective tag sets. Hierarchy walks hit the
// tag repository once per user per TTL window instead of once per listing.
// Entries expire on their own; administrative tag changes should call
// InvalidateAll to drop stale grants sooner.
type Resolver struct {
	graph  *TagGraph
	cache  *expirable.LRU[string, []string]
	logger *slog.Logger
}

// NewResolver creates a Resolver holding at most size entries, each valid
// for ttl. A zero ttl disables expiry.
func NewResolver(graph *TagGraph, size int, ttl time.Duration) *Resolver {
	return &Resolver{
		graph:  graph,
		cache:  expirable.NewLRU[string, []string](size, nil, ttl),
		logger: slog.Default().With("component", "tag-resolver"),
	}
}

// EffectiveTags returns the user's effective tag set, expanding assigned
// tags through the hierarchy on a cache miss. Resolution failures are not
// cached.
func (r *Resolver) EffectiveTags(ctx context.Context, userID string, assigned []string) ([]string, error) {
	if tags, ok := r.cache.Get(userID); ok {
		return tags, nil
	}

	tags, err := r.graph.ResolveEffectiveTags(ctx, assigned)
	if err != nil {
		return nil, err
	}

	r.cache.Add(userID, tags)
	r.logger.Debug("resolved effective tags", "user", userID, "assigned", len(assigned), "effective", len(tags))
	return tags, nil
}

// InvalidateUser drops the cached set for one user.
func (r *Resolver) InvalidateUser(userID string) {
	r.cache.Remove(userID)
}

// InvalidateAll drops every cached set. Call after tag hierarchy changes.
func (r *Resolver) InvalidateAll() {
	r.cache.Purge()
}
