package simzip

import (
	"path/filepath"
	"time"
)

// Location is where an entry's payload comes from: Memory or Disk.
type Location interface {
	location()
}

// Memory is a payload held in memory.
type Memory []byte

// Disk is a payload read from a file when the archive is stored.
type Disk string

func (Memory) location() {}
func (Disk) location()   {}

// Attribute is a set of permission hints that become the Unix mode stored in
// the central directory.
type Attribute uint8

const (
	// Exec marks the entry executable.
	Exec Attribute = 1 << iota
	// NoWrite marks the entry read-only.
	NoWrite
)

// Has reports whether every attribute in x is set in a.
func (a Attribute) Has(x Attribute) bool { return a&x == x }

// perm returns the low byte of the Unix mode for the attribute set.
func (a Attribute) perm() uint8 {
	perm := uint8(defaultPerm)
	if a.Has(NoWrite) {
		perm &= noWritePerm
	}
	if a.Has(Exec) {
		perm |= execPerm
	}
	return perm
}

// UnixMetadata carries the Unix-only fields of an entry. Timestamps are
// seconds since the Unix epoch; zero means the value is not known.
type UnixMetadata struct {
	UID      uint32
	GID      uint32
	Modified int64
	Accessed int64
	Changed  int64
}

// timestampMask returns the extended-timestamp flags for the timestamps that
// are present.
func (m *UnixMetadata) timestampMask() uint8 {
	var mask uint8
	if m.Modified > 0 {
		mask |= extTimeMtime
	}
	if m.Accessed > 0 {
		mask |= extTimeAtime
	}
	if m.Changed > 0 {
		mask |= extTimeCtime
	}
	return mask
}

// An Entry is one member of an archive.
//
// Name, Path, Comment, Attributes and Method describe the entry and may be
// set before the archive is stored. The remaining values are computed while
// storing and are zero until Archive.Store has completed.
type Entry struct {
	Name       string
	Path       string // logical directory inside the archive; may be empty
	Comment    string
	Attributes Attribute
	Method     Compression

	source Location

	crc32            uint32
	compressedSize   uint32
	uncompressedSize uint32
	offset           uint32
	modified         time.Time
	unix             *UnixMetadata
	timestampMask    uint8
}

// NewEntry returns a Store entry called name holding data.
func NewEntry(name string, data []byte) *Entry {
	return &Entry{
		Name:   name,
		source: Memory(data),
	}
}

// EntryFromFile returns a Store entry for the file at path. The entry is named
// after the file's base name and placed under dir inside the archive; an
// empty dir puts it at the root. The file is not touched until the archive
// is stored.
func EntryFromFile(path, dir string) *Entry {
	return &Entry{
		Name:   filepath.Base(path),
		Path:   dir,
		source: Disk(path),
	}
}

// Source returns where the payload comes from.
func (e *Entry) Source() Location {
	if e.source == nil {
		return Memory(nil)
	}
	return e.source
}

// FullName is the name written to the archive: Path and Name joined by a
// slash, or Name alone.
func (e *Entry) FullName() string {
	if e.Path == "" {
		return e.Name
	}
	return e.Path + "/" + e.Name
}

// CRC32 returns the checksum of the uncompressed payload.
func (e *Entry) CRC32() uint32 { return e.crc32 }

// CompressedSize returns the number of payload bytes written.
func (e *Entry) CompressedSize() uint32 { return e.compressedSize }

// UncompressedSize returns the payload length before compression.
func (e *Entry) UncompressedSize() uint32 { return e.uncompressedSize }

// Offset returns the position of the entry's local file header.
func (e *Entry) Offset() uint32 { return e.offset }

// Modified returns the modification time recorded for the entry.
func (e *Entry) Modified() time.Time { return e.modified }

// Unix returns the Unix metadata recorded for the entry, or nil.
func (e *Entry) Unix() *UnixMetadata { return e.unix }

// TimestampMask returns the extended-timestamp flags written for the entry:
// bit 0 modification, bit 1 access, bit 2 change time.
func (e *Entry) TimestampMask() uint8 { return e.timestampMask }

type dirKey struct {
	name string
	path string
}

func (e *Entry) key() dirKey {
	return dirKey{name: e.Name, path: e.Path}
}
