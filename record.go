package simzip

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"time"

	"github.com/xenking/simzip/checksum"
)

// header holds what an entry's local and central records have in common.
// The local pass fills it in; the central pass only reads it.
type header struct {
	name    []byte
	comment []byte
	method  Compression
	attrs   Attribute

	modified         time.Time
	modDate          uint16
	modTime          uint16
	crc32            uint32
	compressedSize   uint32
	uncompressedSize uint32
	offset           uint32

	unix          *UnixMetadata
	timestampMask uint8 // decided once by the local pass, reused by the central one
}

func newHeader(e *Entry, p payload) (header, error) {
	name := e.FullName()
	if len(name) > uint16max {
		return header{}, fmt.Errorf("%w: name of %d bytes", ErrFieldTooLong, len(name))
	}
	if len(e.Comment) > uint16max {
		return header{}, fmt.Errorf("%w: comment of %q", ErrFieldTooLong, name)
	}
	if uint64(len(p.data)) > uint32max {
		return header{}, fmt.Errorf("%w: %q is %d bytes", ErrSizeOverflow, name, len(p.data))
	}
	h := header{
		name:             []byte(name),
		comment:          []byte(e.Comment),
		method:           e.Method,
		attrs:            p.attrs,
		modified:         p.modified,
		uncompressedSize: uint32(len(p.data)),
		unix:             p.unix,
	}
	h.modDate, h.modTime = timeToMsDos(p.modified)
	if p.unix != nil {
		h.timestampMask = p.unix.timestampMask()
	}
	return h, nil
}

// putCommon writes the fields shared by both record kinds: DOS time and date,
// CRC-32, compressed and uncompressed size.
func (h *header) putCommon(b *writeBuf) {
	b.uint16(h.modTime)
	b.uint16(h.modDate)
	b.uint32(h.crc32)
	b.uint32(h.compressedSize)
	b.uint32(h.uncompressedSize)
}

func (h *header) externalAttrs() uint32 {
	return externalAttrBase | uint32(h.attrs.perm())<<16
}

// localExtra encodes the extended timestamp field with every timestamp named
// by the mask.
func (h *header) localExtra() ([]byte, error) {
	if h.unix == nil {
		return nil, nil
	}
	declared := 4 + 1 + 4*bits.OnesCount8(h.timestampMask)

	extra := make([]byte, 0, declared)
	extra = binary.LittleEndian.AppendUint16(extra, extTimeExtraID)
	extra = binary.LittleEndian.AppendUint16(extra, uint16(declared-4))
	extra = append(extra, h.timestampMask)
	if h.timestampMask&extTimeMtime != 0 {
		extra = binary.LittleEndian.AppendUint32(extra, uint32(h.unix.Modified))
	}
	if h.timestampMask&extTimeAtime != 0 {
		extra = binary.LittleEndian.AppendUint32(extra, uint32(h.unix.Accessed))
	}
	if h.timestampMask&extTimeCtime != 0 {
		extra = binary.LittleEndian.AppendUint32(extra, uint32(h.unix.Changed))
	}
	return extra, checkExtraLen("local", h.name, declared, extra)
}

// centralExtra encodes the owner field when uid or gid is set, then the
// central form of the extended timestamp: the local mask with only the
// modification time following it.
func (h *header) centralExtra() ([]byte, error) {
	if h.unix == nil {
		return nil, nil
	}
	owner := h.unix.UID != 0 || h.unix.GID != 0
	declared := 4 + 1
	if h.timestampMask&extTimeMtime != 0 {
		declared += 4
	}
	if owner {
		declared += 4 + unixOwnerLen
	}

	extra := make([]byte, 0, declared)
	if owner {
		extra = binary.LittleEndian.AppendUint16(extra, unixOwnerExtraID)
		extra = binary.LittleEndian.AppendUint16(extra, unixOwnerLen)
		extra = append(extra, 1, 4) // version, uid size
		extra = binary.LittleEndian.AppendUint32(extra, h.unix.UID)
		extra = append(extra, 4) // gid size
		extra = binary.LittleEndian.AppendUint32(extra, h.unix.GID)
	}
	extra = binary.LittleEndian.AppendUint16(extra, extTimeExtraID)
	if h.timestampMask&extTimeMtime != 0 {
		extra = binary.LittleEndian.AppendUint16(extra, 5)
		extra = append(extra, h.timestampMask)
		extra = binary.LittleEndian.AppendUint32(extra, uint32(h.unix.Modified))
	} else {
		extra = binary.LittleEndian.AppendUint16(extra, 1)
		extra = append(extra, h.timestampMask)
	}
	return extra, checkExtraLen("central", h.name, declared, extra)
}

func checkExtraLen(record string, name []byte, declared int, extra []byte) error {
	if len(extra) != declared {
		return fmt.Errorf("%w: %s record of %q declares %d bytes, encoded %d", ErrExtraFieldLength, record, name, declared, len(extra))
	}
	return nil
}

// writeLocal writes the local file header and payload of e, then patches the
// CRC-32 and compressed size into the header. It returns the finished header
// and the number of bytes appended to the output.
func (a *Archive) writeLocal(s *sink, e *Entry) (header, int, error) {
	comp := a.compressor(e.Method)
	if comp == nil {
		return header{}, 0, fmt.Errorf("%w: %s for %q", ErrUnsupportedCompression, e.Method, e.FullName())
	}
	p, err := a.load(e)
	if err != nil {
		return header{}, 0, err
	}
	h, err := newHeader(e, p)
	if err != nil {
		return header{}, 0, err
	}

	start := s.pos
	if start > uint32max {
		return header{}, 0, fmt.Errorf("%w: %q starts at offset %d", ErrSizeOverflow, h.name, start)
	}
	h.offset = uint32(start)

	extra, err := h.localExtra()
	if err != nil {
		return header{}, 0, err
	}
	buf := make([]byte, fileHeaderLen+len(h.name)+len(extra))
	b := writeBuf(buf)
	b.uint32(fileHeaderSignature)
	b.uint16(versionNeeded)
	b.uint16(0) // flags
	b.uint16(uint16(h.method))
	h.putCommon(&b) // CRC-32 and compressed size are still zero
	b.uint16(uint16(len(h.name)))
	b.uint16(uint16(len(extra)))
	b.bytes(h.name)
	b.bytes(extra)
	if err := s.write(buf); err != nil {
		return header{}, 0, err
	}

	out := make([]byte, comp.CompressBound(len(p.data)))
	n, err := comp.Compress(out, p.data)
	if err != nil {
		return header{}, 0, &Error{Op: "compress", Path: string(h.name), Err: err}
	}
	if n > len(out) {
		return header{}, 0, fmt.Errorf("%w: %s wrote %d of %d bytes for %q", ErrCompressBound, h.method, n, len(out), h.name)
	}
	if err := s.write(out[:n]); err != nil {
		return header{}, 0, err
	}
	h.crc32 = checksum.UpdateFast16(0, p.data)
	h.compressedSize = uint32(n)

	var fix [8]byte
	fb := writeBuf(fix[:])
	fb.uint32(h.crc32)
	fb.uint32(h.compressedSize)
	if err := s.patch(start+fileHeaderCRCOffset, fix[:]); err != nil {
		return header{}, 0, err
	}
	return h, len(buf) + n, nil
}

// writeCentral writes the central directory record for h and returns its size.
func (h header) writeCentral(s *sink) (int, error) {
	extra, err := h.centralExtra()
	if err != nil {
		return 0, err
	}
	buf := make([]byte, directoryHeaderLen+len(h.name)+len(extra)+len(h.comment))
	b := writeBuf(buf)
	b.uint32(directoryHeaderSignature)
	b.uint16(versionMadeBy)
	b.uint16(versionNeeded)
	b.uint16(0) // flags
	b.uint16(uint16(h.method))
	h.putCommon(&b)
	b.uint16(uint16(len(h.name)))
	b.uint16(uint16(len(extra)))
	b.uint16(uint16(len(h.comment)))
	b.uint16(0) // disk number start
	b.uint16(0) // internal attributes
	b.uint32(h.externalAttrs())
	b.uint32(h.offset)
	b.bytes(h.name)
	b.bytes(extra)
	b.bytes(h.comment)
	if err := s.write(buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// writeEnd writes the end of central directory record. Entry counts beyond
// 65535 wrap; zip64 is not supported.
func writeEnd(s *sink, records int, size, offset int64, comment []byte) (int, error) {
	if size > uint32max || offset > uint32max {
		return 0, fmt.Errorf("%w: central directory of %d bytes at offset %d", ErrSizeOverflow, size, offset)
	}
	buf := make([]byte, directoryEndLen+len(comment))
	b := writeBuf(buf)
	b.uint32(directoryEndSignature)
	b.uint16(0)               // number of this disk
	b.uint16(0)               // disk with the start of the central directory
	b.uint16(uint16(records)) // entries on this disk
	b.uint16(uint16(records)) // total entries
	b.uint32(uint32(size))
	b.uint32(uint32(offset))
	b.uint16(uint16(len(comment)))
	b.bytes(comment)
	if err := s.write(buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}
