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


package ingestion

import "errors"

var (
	// ErrFileRepositoryRequired is returned when a file repository is not provided.
	ErrFileRepositoryRequired = errors.New("file repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrBlobStoreRequired is returned when a blob store is not provided.
	ErrBlobStoreRequired = errors.New("blob store required")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrBlobMissing is returned when a document's payload exists under
	// neither its primary nor its legacy object key.
	ErrBlobMissing = errors.New("document payload not found in object store")

	// ErrNoChunks is returned when a document yields no chunks at all.
	ErrNoChunks = errors.New("document produced no chunks")
)
