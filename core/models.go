package core

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is the content-derived identifier of a file: the lowercase
// hexadecimal MD5 of the file bytes (32 characters). It is the natural key
// used across the metadata store, the blob store and the vector index.
type Fingerprint = string

// FingerprintBytes computes the content fingerprint of a file's bytes.
func FingerprintBytes(data []byte) Fingerprint {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// ChunkID generates a deterministic 64-bit identifier for an indexed chunk
// from its file fingerprint and position, using BLAKE2b hashing. Identical
// (fingerprint, index) pairs always produce identical IDs.
func ChunkID(fingerprint Fingerprint, index int) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(fingerprint))
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], uint32(index))
	h.Write(idx[:])
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// FileRecord represents an uploaded file tracked by the ingestion subsystem.
// A record is created when an upload starts and mutated only through the
// processing tracker until the lifecycle coordinator removes it.
type FileRecord struct {
	Id              uint64 // Surrogate key from the storage sequence
	Fingerprint     Fingerprint
	Name            string // Original name at upload time
	TotalSize       int64  // Size in bytes
	OwnerID         string
	OrgTag          string // Owning organization tag, empty if none
	IsPublic        bool
	CreatedAt       time.Time
	MergedAt        time.Time // When the upload merge completed; zero until then
	Status          ProcessingStatus
	ProcessingError string    // Failure reason; non-empty iff Status is StatusFailed
	StatusUpdatedAt time.Time // When Status last changed
}

// ChunkRecord is one ordered piece of a file's extracted text.
// For a given fingerprint, chunk indices are contiguous starting at 0 and
// retrieval order equals index order; vectors are reassembled positionally.
type ChunkRecord struct {
	Fingerprint Fingerprint
	Index       int
	Content     string
	Vector      []float32 // Populated once the embedding stage completes
}

// OrganizationTag is a node in the organization tag forest.
type OrganizationTag struct {
	TagID       string
	ParentTag   string // Empty for roots
	Name        string
	Description string
	CreatedAt   time.Time
}

// IsRoot reports whether the tag has no parent.
func (t *OrganizationTag) IsRoot() bool {
	return t.ParentTag == ""
}

// IndexEntry is one vectorized chunk as stored in the vector index.
type IndexEntry struct {
	Fingerprint Fingerprint
	ChunkIndex  int
	Vector      []float32
	Content     string
}

// IndexMatch is a chunk match from vector similarity search.
type IndexMatch struct {
	Entry *IndexEntry
	Score float32
}
