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

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/inferaflow/docustore/core"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is how many characters consecutive chunks share.
	DefaultChunkOverlap = 100
)

// Chunker splits extracted document text into chunk records with
// contiguous zero-based indices.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a Chunker. Non-positive size or negative overlap
// fall back to the defaults.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}

	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

// Split chunks the text for the given document. Whitespace-only pieces
// are dropped; indices of the surviving chunks stay contiguous from 0.
func (c *Chunker) Split(fingerprint core.Fingerprint, text string) ([]*core.ChunkRecord, error) {
	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	chunks := make([]*core.ChunkRecord, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, &core.ChunkRecord{
			Fingerprint: fingerprint,
			Index:       len(chunks),
			Content:     piece,
		})
	}

	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	return chunks, nil
}
