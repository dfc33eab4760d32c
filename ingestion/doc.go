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


// Package ingestion processes uploaded documents into searchable chunks.
//
// A document enters the pipeline in the pending state. Processing fetches
// its payload from the object store, extracts plain text, splits it into
// overlapping chunks, embeds every chunk and writes the vectors to the
// index, advancing the record through parsing, vectorizing and finally
// completed. Any stage failure parks the record in the failed state with
// the stage's error message; a failed record can be re-queued and run
// again from the start.
//
// Status transitions go through Tracker, which enforces the legal moves
// of the state machine and treats updates to deleted records as no-ops,
// since deletion is allowed to race with in-flight processing.
//
// # Usage
//
//	pipeline, err := ingestion.NewPipeline(files, chunks, index, store,
//	    extractor, embedder, ingestion.WithPoolSize(4))
//	if err != nil {
//	    return err
//	}
//	defer pipeline.Release()
//
//	// Queue a pending document for asynchronous processing.
//	pipeline.Submit(record.Fingerprint, record.OwnerID)
package ingestion
