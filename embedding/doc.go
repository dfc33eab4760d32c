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


// Package embedding turns ordered text chunks into ordered vectors through
// an OpenAI-compatible /embeddings endpoint.
//
// The client partitions input into bounded batches, submits one request per
// batch, retries transient provider failures with a fixed delay, and
// reassembles per-chunk vectors in input order. A batch that still fails
// after the retry budget fails the whole call; partial results are never
// returned, because vector/chunk alignment must not silently desynchronize.
//
// # Usage
//
//	cfg := embedding.NewConfig(
//	    embedding.WithBaseURL("https://api.example.com/v1"),
//	    embedding.WithModel("text-embedding-v3"),
//	)
//	client, err := embedding.NewClient(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vectors, err := client.Embed(ctx, texts)
package embedding
