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


package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/inferaflow/docustore/core"
)

// Binary record layout: varint-length-prefixed strings, varint integers,
// fixed 8-byte UnixMicro timestamps and fixed 4-byte float32 vector
// elements. The layout is versioned with a leading format byte so future
// migrations can detect old values.

const (
	fileRecordVersion = 1
	chunkVersion      = 1
	tagVersion        = 1
	indexEntryVersion = 1
)

type encoder struct {
	buf []byte
}

func (e *encoder) uint64(v uint64) {
	e.buf = binary.AppendUvarint(e.buf, v)
}

func (e *encoder) int64(v int64) {
	e.buf = binary.AppendVarint(e.buf, v)
}

func (e *encoder) str(s string) {
	e.buf = binary.AppendUvarint(e.buf, uint64(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) boolean(b bool) {
	if b {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// timestamp encodes a time as UnixMicro; the zero time encodes as zero.
func (e *encoder) timestamp(t time.Time) {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	e.buf = binary.AppendVarint(e.buf, micros)
}

func (e *encoder) vector(v []float32) {
	e.buf = binary.AppendUvarint(e.buf, uint64(len(v)))
	for _, f := range v {
		e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(f))
	}
}

type decoder struct {
	buf []byte
}

func (d *decoder) uint64() (uint64, error) {
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		return 0, ErrTruncatedData
	}
	d.buf = d.buf[n:]
	return v, nil
}

func (d *decoder) int64() (int64, error) {
	v, n := binary.Varint(d.buf)
	if n <= 0 {
		return 0, ErrTruncatedData
	}
	d.buf = d.buf[n:]
	return v, nil
}

func (d *decoder) str() (string, error) {
	length, err := d.uint64()
	if err != nil {
		return "", err
	}
	if uint64(len(d.buf)) < length {
		return "", ErrTruncatedData
	}
	s := string(d.buf[:length])
	d.buf = d.buf[length:]
	return s, nil
}

func (d *decoder) boolean() (bool, error) {
	if len(d.buf) < 1 {
		return false, ErrTruncatedData
	}
	b := d.buf[0] != 0
	d.buf = d.buf[1:]
	return b, nil
}

func (d *decoder) timestamp() (time.Time, error) {
	micros, err := d.int64()
	if err != nil {
		return time.Time{}, err
	}
	if micros == 0 {
		return time.Time{}, nil
	}
	return time.UnixMicro(micros).UTC(), nil
}

func (d *decoder) vector() ([]float32, error) {
	length, err := d.uint64()
	if err != nil {
		return nil, err
	}
	if uint64(len(d.buf)) < length*4 {
		return nil, ErrTruncatedData
	}
	if length == 0 {
		return nil, nil
	}
	v := make([]float32, length)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(d.buf[i*4:]))
	}
	d.buf = d.buf[length*4:]
	return v, nil
}

func checkVersion(d *decoder, want byte, what string) error {
	if len(d.buf) < 1 {
		return fmt.Errorf("%w: empty %s value", ErrTruncatedData, what)
	}
	got := d.buf[0]
	d.buf = d.buf[1:]
	if got != want {
		return fmt.Errorf("%w: unsupported %s format version %d", ErrSerializationFailed, what, got)
	}
	return nil
}

// MarshalFileRecord serializes a FileRecord to bytes.
func MarshalFileRecord(record *core.FileRecord) []byte {
	e := &encoder{buf: make([]byte, 0, 96+len(record.Name)+len(record.ProcessingError))}
	e.buf = append(e.buf, fileRecordVersion)
	e.uint64(record.Id)
	e.str(record.Fingerprint)
	e.str(record.Name)
	e.int64(record.TotalSize)
	e.str(record.OwnerID)
	e.str(record.OrgTag)
	e.boolean(record.IsPublic)
	e.timestamp(record.CreatedAt)
	e.timestamp(record.MergedAt)
	e.str(string(record.Status))
	e.str(record.ProcessingError)
	e.timestamp(record.StatusUpdatedAt)
	return e.buf
}

// UnmarshalFileRecord deserializes a FileRecord from bytes.
func UnmarshalFileRecord(data []byte) (*core.FileRecord, error) {
	d := &decoder{buf: data}
	if err := checkVersion(d, fileRecordVersion, "file record"); err != nil {
		return nil, err
	}
	record := &core.FileRecord{}
	var err error
	if record.Id, err = d.uint64(); err != nil {
		return nil, err
	}
	if record.Fingerprint, err = d.str(); err != nil {
		return nil, err
	}
	if record.Name, err = d.str(); err != nil {
		return nil, err
	}
	if record.TotalSize, err = d.int64(); err != nil {
		return nil, err
	}
	if record.OwnerID, err = d.str(); err != nil {
		return nil, err
	}
	if record.OrgTag, err = d.str(); err != nil {
		return nil, err
	}
	if record.IsPublic, err = d.boolean(); err != nil {
		return nil, err
	}
	if record.CreatedAt, err = d.timestamp(); err != nil {
		return nil, err
	}
	if record.MergedAt, err = d.timestamp(); err != nil {
		return nil, err
	}
	var status string
	if status, err = d.str(); err != nil {
		return nil, err
	}
	record.Status = core.ProcessingStatus(status)
	if record.ProcessingError, err = d.str(); err != nil {
		return nil, err
	}
	if record.StatusUpdatedAt, err = d.timestamp(); err != nil {
		return nil, err
	}
	return record, nil
}

// MarshalChunk serializes a ChunkRecord to bytes.
func MarshalChunk(chunk *core.ChunkRecord) []byte {
	e := &encoder{buf: make([]byte, 0, 48+len(chunk.Content)+len(chunk.Vector)*4)}
	e.buf = append(e.buf, chunkVersion)
	e.str(chunk.Fingerprint)
	e.int64(int64(chunk.Index))
	e.str(chunk.Content)
	e.vector(chunk.Vector)
	return e.buf
}

// UnmarshalChunk deserializes a ChunkRecord from bytes.
func UnmarshalChunk(data []byte) (*core.ChunkRecord, error) {
	d := &decoder{buf: data}
	if err := checkVersion(d, chunkVersion, "chunk"); err != nil {
		return nil, err
	}
	chunk := &core.ChunkRecord{}
	var err error
	if chunk.Fingerprint, err = d.str(); err != nil {
		return nil, err
	}
	var index int64
	if index, err = d.int64(); err != nil {
		return nil, err
	}
	chunk.Index = int(index)
	if chunk.Content, err = d.str(); err != nil {
		return nil, err
	}
	if chunk.Vector, err = d.vector(); err != nil {
		return nil, err
	}
	return chunk, nil
}

// MarshalTag serializes an OrganizationTag to bytes.
func MarshalTag(tag *core.OrganizationTag) []byte {
	e := &encoder{buf: make([]byte, 0, 48+len(tag.Name)+len(tag.Description))}
	e.buf = append(e.buf, tagVersion)
	e.str(tag.TagID)
	e.str(tag.ParentTag)
	e.str(tag.Name)
	e.str(tag.Description)
	e.timestamp(tag.CreatedAt)
	return e.buf
}

// UnmarshalTag deserializes an OrganizationTag from bytes.
func UnmarshalTag(data []byte) (*core.OrganizationTag, error) {
	d := &decoder{buf: data}
	if err := checkVersion(d, tagVersion, "tag"); err != nil {
		return nil, err
	}
	tag := &core.OrganizationTag{}
	var err error
	if tag.TagID, err = d.str(); err != nil {
		return nil, err
	}
	if tag.ParentTag, err = d.str(); err != nil {
		return nil, err
	}
	if tag.Name, err = d.str(); err != nil {
		return nil, err
	}
	if tag.Description, err = d.str(); err != nil {
		return nil, err
	}
	if tag.CreatedAt, err = d.timestamp(); err != nil {
		return nil, err
	}
	return tag, nil
}

// MarshalIndexEntry serializes an IndexEntry to bytes.
func MarshalIndexEntry(entry *core.IndexEntry) []byte {
	e := &encoder{buf: make([]byte, 0, 48+len(entry.Content)+len(entry.Vector)*4)}
	e.buf = append(e.buf, indexEntryVersion)
	e.str(entry.Fingerprint)
	e.int64(int64(entry.ChunkIndex))
	e.vector(entry.Vector)
	e.str(entry.Content)
	return e.buf
}

// UnmarshalIndexEntry deserializes an IndexEntry from bytes.
func UnmarshalIndexEntry(data []byte) (*core.IndexEntry, error) {
	d := &decoder{buf: data}
	if err := checkVersion(d, indexEntryVersion, "index entry"); err != nil {
		return nil, err
	}
	entry := &core.IndexEntry{}
	var err error
	if entry.Fingerprint, err = d.str(); err != nil {
		return nil, err
	}
	var index int64
	if index, err = d.int64(); err != nil {
		return nil, err
	}
	entry.ChunkIndex = int(index)
	if entry.Vector, err = d.vector(); err != nil {
		return nil, err
	}
	if entry.Content, err = d.str(); err != nil {
		return nil, err
	}
	return entry, nil
}
