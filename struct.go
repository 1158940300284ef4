package simzip

import (
	"encoding/binary"
	"time"
)

const (
	fileHeaderSignature      = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50
	fileHeaderLen            = 30 // + filename + extra
	directoryHeaderLen       = 46 // + filename + extra + comment
	directoryEndLen          = 22 // + comment

	// Offset of the CRC-32 field inside a local file header. The compressed
	// size follows it directly.
	fileHeaderCRCOffset = 14

	versionNeeded = 20     // 2.0
	versionMadeBy = 0x033f // Unix, 6.3

	// Regular file with owner read; the low byte of the mode is filled in
	// from the entry attributes.
	externalAttrBase = 0x81000000
	defaultPerm      = 0o266
	noWritePerm      = 0o155
	execPerm         = 0o111

	uint16max = (1 << 16) - 1
	uint32max = (1 << 32) - 1

	// Extra header IDs.
	//
	// See http://mdfs.net/Docs/Comp/Archiving/Zip/ExtraField
	extTimeExtraID   = 0x5455 // Extended timestamp
	unixOwnerExtraID = 0x7875 // Info-ZIP Unix UID/GID, version 1

	extTimeMtime = 1 << 0
	extTimeAtime = 1 << 1
	extTimeCtime = 1 << 2

	// version(1) + uid size(1) + uid(4) + gid size(1) + gid(4)
	unixOwnerLen = 11
)

// timeToMsDos converts a time.Time to an MS-DOS date and time.
// The resolution is 2s. Times outside 1980..2107 are clamped to the
// representable range.
// See: http://msdn.microsoft.com/en-us/library/ms724274(v=VS.85).aspx
func timeToMsDos(t time.Time) (fDate uint16, fTime uint16) {
	t = t.UTC()
	switch {
	case t.Year() < 1980:
		t = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	case t.Year() > 2107:
		t = time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC)
	}
	fDate = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	fTime = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return fDate, fTime
}

// writeBuf is the write-side twin of a little-endian read cursor: each call
// fills the front of the slice and advances past it.
type writeBuf []byte

func (b *writeBuf) uint8(v uint8) {
	(*b)[0] = v
	*b = (*b)[1:]
}

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}

func (b *writeBuf) bytes(p []byte) {
	n := copy(*b, p)
	*b = (*b)[n:]
}
