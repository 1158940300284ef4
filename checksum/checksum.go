// Package checksum implements the IEEE CRC-32 used by ZIP archives.
//
// Two implementations share one precomputed table set: Update walks the input
// a byte at a time and UpdateFast16 consumes 16 bytes per table lookup round,
// four rounds per step. Both return identical values for every input, so
// callers pick UpdateFast16 for throughput and Update as the reference.
package checksum

// IEEE is the reflected form of the CRC-32 polynomial used by ZIP, gzip and PNG.
const IEEE = 0xedb88320

const (
	slicing  = 16
	unroll   = 4
	stepSize = slicing * unroll
)

// table[0] is the classic byte-wise table. table[k][i] is table[0][i]
// advanced k more bytes through a zero input.
var table = makeTable(IEEE)

func makeTable(poly uint32) *[slicing][256]uint32 {
	t := new([slicing][256]uint32)
	for i := range 256 {
		crc := uint32(i)
		for range 8 {
			if crc&1 == 1 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		t[0][i] = crc
	}
	for i := range 256 {
		crc := t[0][i]
		for k := 1; k < slicing; k++ {
			crc = t[0][crc&0xff] ^ crc>>8
			t[k][i] = crc
		}
	}
	return t
}

// Update returns the CRC-32 of p continued from prev. Pass 0 as prev to start
// a new checksum.
func Update(prev uint32, p []byte) uint32 {
	crc := ^prev
	for _, v := range p {
		crc = table[0][byte(crc)^v] ^ crc>>8
	}
	return ^crc
}

// UpdateFast16 is equivalent to Update but processes 64 bytes per step. The
// tail shorter than one step is handed to Update.
func UpdateFast16(prev uint32, p []byte) uint32 {
	crc := ^prev
	for len(p) >= stepSize {
		for range unroll {
			crc = table[0x0][p[0xf]] ^
				table[0x1][p[0xe]] ^
				table[0x2][p[0xd]] ^
				table[0x3][p[0xc]] ^
				table[0x4][p[0xb]] ^
				table[0x5][p[0xa]] ^
				table[0x6][p[0x9]] ^
				table[0x7][p[0x8]] ^
				table[0x8][p[0x7]] ^
				table[0x9][p[0x6]] ^
				table[0xa][p[0x5]] ^
				table[0xb][p[0x4]] ^
				table[0xc][p[0x3]^byte(crc>>24)] ^
				table[0xd][p[0x2]^byte(crc>>16)] ^
				table[0xe][p[0x1]^byte(crc>>8)] ^
				table[0xf][p[0x0]^byte(crc)]
			p = p[slicing:]
		}
	}
	return Update(^crc, p)
}

// Checksum returns the CRC-32 of p.
func Checksum(p []byte) uint32 {
	return UpdateFast16(0, p)
}
