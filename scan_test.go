package simzip

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type readBuf []byte

func (b *readBuf) uint8() uint8 {
	v := (*b)[0]
	*b = (*b)[1:]
	return v
}

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) sub(n int) readBuf {
	b2 := (*b)[:n]
	*b = (*b)[n:]
	return b2
}

// msDosTimeToTime converts an MS-DOS date and time into a time.Time.
func msDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		// date bits 0-4: day of month; 5-8: month; 9-15: years since 1980
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),

		// time bits 0-4: second/2; 5-10: minute; 11-15: hour
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0, // nanoseconds

		time.UTC,
	)
}

type localRecord struct {
	offset           int64
	version          uint16
	flags            uint16
	method           uint16
	modTime          uint16
	modDate          uint16
	crc32            uint32
	compressedSize   uint32
	uncompressedSize uint32
	name             string
	extra            []byte
	data             []byte
	end              int64 // position right after the payload
}

type centralRecord struct {
	offset           int64
	size             int
	madeBy           uint16
	version          uint16
	flags            uint16
	method           uint16
	modTime          uint16
	modDate          uint16
	crc32            uint32
	compressedSize   uint32
	uncompressedSize uint32
	diskStart        uint16
	internalAttrs    uint16
	externalAttrs    uint32
	localOffset      uint32
	name             string
	extra            []byte
	comment          string
}

type endRecord struct {
	offset      int64
	disk        uint16
	dirDisk     uint16
	diskEntries uint16
	entries     uint16
	dirSize     uint32
	dirOffset   uint32
	comment     string
}

type archiveScan struct {
	locals   []localRecord
	centrals []centralRecord
	end      endRecord
}

// scanArchive walks an archive record by record from start, trusting only
// the lengths stored in the headers, and requires it to end exactly after the
// end of central directory record.
func scanArchive(t *testing.T, archive []byte, start int64) archiveScan {
	t.Helper()

	var scan archiveScan
	pos := start
	for {
		require.LessOrEqual(t, pos+4, int64(len(archive)), "truncated archive at %d", pos)
		switch sig := binary.LittleEndian.Uint32(archive[pos:]); sig {
		case fileHeaderSignature:
			rec := readLocalRecord(t, archive, pos)
			scan.locals = append(scan.locals, rec)
			pos = rec.end
		case directoryHeaderSignature:
			rec := readCentralRecord(t, archive, pos)
			scan.centrals = append(scan.centrals, rec)
			pos += int64(rec.size)
		case directoryEndSignature:
			scan.end = readEndRecord(t, archive, pos)
			require.Equal(t, int64(len(archive)), pos+directoryEndLen+int64(len(scan.end.comment)), "trailing bytes after end record")
			return scan
		default:
			require.Failf(t, "unknown signature", "0x%08x at offset %d", sig, pos)
		}
	}
}

func readLocalRecord(t *testing.T, archive []byte, pos int64) localRecord {
	t.Helper()

	require.LessOrEqual(t, pos+fileHeaderLen, int64(len(archive)))
	b := readBuf(archive[pos+4 : pos+fileHeaderLen])
	rec := localRecord{
		offset:           pos,
		version:          b.uint16(),
		flags:            b.uint16(),
		method:           b.uint16(),
		modTime:          b.uint16(),
		modDate:          b.uint16(),
		crc32:            b.uint32(),
		compressedSize:   b.uint32(),
		uncompressedSize: b.uint32(),
	}
	nameLen := int64(b.uint16())
	extraLen := int64(b.uint16())
	p := pos + fileHeaderLen
	require.LessOrEqual(t, p+nameLen+extraLen+int64(rec.compressedSize), int64(len(archive)))
	rec.name = string(archive[p : p+nameLen])
	p += nameLen
	rec.extra = archive[p : p+extraLen]
	p += extraLen
	rec.data = archive[p : p+int64(rec.compressedSize)]
	rec.end = p + int64(rec.compressedSize)
	return rec
}

func readCentralRecord(t *testing.T, archive []byte, pos int64) centralRecord {
	t.Helper()

	require.LessOrEqual(t, pos+directoryHeaderLen, int64(len(archive)))
	b := readBuf(archive[pos+4 : pos+directoryHeaderLen])
	rec := centralRecord{
		offset:           pos,
		madeBy:           b.uint16(),
		version:          b.uint16(),
		flags:            b.uint16(),
		method:           b.uint16(),
		modTime:          b.uint16(),
		modDate:          b.uint16(),
		crc32:            b.uint32(),
		compressedSize:   b.uint32(),
		uncompressedSize: b.uint32(),
	}
	nameLen := int64(b.uint16())
	extraLen := int64(b.uint16())
	commentLen := int64(b.uint16())
	rec.diskStart = b.uint16()
	rec.internalAttrs = b.uint16()
	rec.externalAttrs = b.uint32()
	rec.localOffset = b.uint32()
	p := pos + directoryHeaderLen
	require.LessOrEqual(t, p+nameLen+extraLen+commentLen, int64(len(archive)))
	rec.name = string(archive[p : p+nameLen])
	p += nameLen
	rec.extra = archive[p : p+extraLen]
	p += extraLen
	rec.comment = string(archive[p : p+commentLen])
	rec.size = int(directoryHeaderLen + nameLen + extraLen + commentLen)
	return rec
}

func readEndRecord(t *testing.T, archive []byte, pos int64) endRecord {
	t.Helper()

	require.LessOrEqual(t, pos+directoryEndLen, int64(len(archive)))
	b := readBuf(archive[pos+4 : pos+directoryEndLen])
	rec := endRecord{
		offset:      pos,
		disk:        b.uint16(),
		dirDisk:     b.uint16(),
		diskEntries: b.uint16(),
		entries:     b.uint16(),
		dirSize:     b.uint32(),
		dirOffset:   b.uint32(),
	}
	commentLen := int64(b.uint16())
	p := pos + directoryEndLen
	require.LessOrEqual(t, p+commentLen, int64(len(archive)))
	rec.comment = string(archive[p : p+commentLen])
	return rec
}

type extraField struct {
	tag  uint16
	data readBuf
}

// parseExtra splits an extra field into its sub-fields and requires the
// declared sizes to cover the field exactly.
func parseExtra(t *testing.T, extra []byte) []extraField {
	t.Helper()

	var fields []extraField
	for b := readBuf(extra); len(b) > 0; {
		require.GreaterOrEqual(t, len(b), 4, "dangling bytes in extra field")
		tag := b.uint16()
		size := int(b.uint16())
		require.GreaterOrEqual(t, len(b), size, "extra field 0x%04x declares %d bytes, %d left", tag, size, len(b))
		fields = append(fields, extraField{tag: tag, data: b.sub(size)})
	}
	return fields
}

func findExtra(fields []extraField, tag uint16) (readBuf, bool) {
	for _, f := range fields {
		if f.tag == tag {
			return append(readBuf(nil), f.data...), true
		}
	}
	return nil, false
}

// memFile is an in-memory io.WriteSeeker.
type memFile struct {
	buf []byte
	pos int64
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		m.buf = append(m.buf, make([]byte, end-int64(len(m.buf)))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("memFile: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memFile: negative position")
	}
	m.pos = abs
	return abs, nil
}

// failingFile accepts limit bytes and then fails every write.
type failingFile struct {
	memFile
	limit int64
}

var errDiskFull = errors.New("disk full")

func (f *failingFile) Write(p []byte) (int, error) {
	if f.pos+int64(len(p)) > f.limit {
		return 0, errDiskFull
	}
	return f.memFile.Write(p)
}
