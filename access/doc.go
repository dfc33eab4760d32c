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


// Package access implements hierarchical organization-tag visibility.
//
// Organization tags form a forest: each tag optionally points at a parent,
// and a user assigned a tag can see documents shared to that tag and to
// every ancestor up to the root. TagGraph walks the hierarchy with cycle
// detection, Resolver memoizes per-user effective tag sets in an expiring
// LRU cache, and Filter combines ownership, public visibility and tag
// grants into the final listing a user may see.
//
// # Usage
//
//	graph := access.NewTagGraph(tagRepo)
//	resolver := access.NewResolver(graph, 256, 5*time.Minute)
//	filter := access.NewFilter(fileRepo, resolver)
//
//	visible, err := filter.ListVisible(ctx, userID, assignedTags)
package access
