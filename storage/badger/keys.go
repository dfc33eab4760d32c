package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/inferaflow/docustore/core"
)

// Key prefixes. Every record family gets its own prefix so iterators can
// scan one family without filtering out foreign keys.
const (
	fileRecordPrefix  = "filrec"
	fileRecordIDSeq   = "filrecseq"
	fileOwnerPrefix   = "filown"
	filePublicPrefix  = "filpub"
	fileTagPrefix     = "filtag"
	chunkRecordPrefix = "chkrec"
	orgTagPrefix      = "orgtag"
	tagChildPrefix    = "tagchd"
	vectorIndexPrefix = "vecidx"
)

// makeFileRecordKey generates the primary key for a file record.
func makeFileRecordKey(fingerprint core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s", fileRecordPrefix, fingerprint))
}

// makeFileOwnerKey generates a composite key for the owner index.
// Format: prefix:ownerID:fingerprint
func makeFileOwnerKey(ownerID string, fingerprint core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", fileOwnerPrefix, ownerID, fingerprint))
}

// makeFileOwnerScan generates the scan prefix for one owner's records.
func makeFileOwnerScan(ownerID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", fileOwnerPrefix, ownerID))
}

// makeFilePublicKey generates a key for the public-visibility index.
func makeFilePublicKey(fingerprint core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s", filePublicPrefix, fingerprint))
}

// makeFileTagKey generates a composite key for the org-tag index.
// Format: prefix:tagID:fingerprint
func makeFileTagKey(tagID string, fingerprint core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", fileTagPrefix, tagID, fingerprint))
}

// makeFileTagScan generates the scan prefix for one org tag's records.
func makeFileTagScan(tagID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", fileTagPrefix, tagID))
}

// makeChunkKey generates a composite key for a chunk record.
// The index is written BigEndian so lexicographic iteration order equals
// chunk index order, which callers rely on for positional reassembly.
func makeChunkKey(fingerprint core.Fingerprint, index int) []byte {
	prefix := fmt.Sprintf("%s:%s:", chunkRecordPrefix, fingerprint)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(index))
	return buf
}

// makeChunkScan generates the scan prefix for one file's chunks.
func makeChunkScan(fingerprint core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkRecordPrefix, fingerprint))
}

// makeOrgTagKey generates the primary key for an organization tag.
func makeOrgTagKey(tagID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", orgTagPrefix, tagID))
}

// makeTagChildKey generates a composite key for the parent->child index.
// Format: prefix:parentID:childID
func makeTagChildKey(parentID, childID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", tagChildPrefix, parentID, childID))
}

// makeTagChildScan generates the scan prefix for one parent's children.
func makeTagChildScan(parentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", tagChildPrefix, parentID))
}

// makeVectorKey generates a composite key for a vector index entry.
// BigEndian chunk index keeps entries in chunk order under iteration.
func makeVectorKey(fingerprint core.Fingerprint, chunkIndex int) []byte {
	prefix := fmt.Sprintf("%s:%s:", vectorIndexPrefix, fingerprint)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(chunkIndex))
	return buf
}

// makeVectorScan generates the scan prefix for one file's index entries.
func makeVectorScan(fingerprint core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorIndexPrefix, fingerprint))
}
