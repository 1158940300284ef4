// Package lzma provides a simzip.Compressor for ZIP method 14.
//
// The compressor is not registered by default. Install it for one archive
// with
//
//	c, err := lzma.NewCompressor(lzma.DefaultDictCap)
//	...
//	a.RegisterCompressor(simzip.LZMA, c)
//
// Entry data is laid out as the ZIP application note describes it: a 2-byte
// LZMA SDK version, the 2-byte length of the properties, the 5 property bytes
// and the raw stream. The stream carries no end marker, so general purpose
// flag bit 1 stays clear and readers stop at the uncompressed size.
package lzma

import (
	"encoding/binary"
	"fmt"

	xzlzma "github.com/ulikunitz/xz/lzma"

	"github.com/xenking/simzip"
)

const (
	// DefaultDictCap is the dictionary capacity used by LZMA SDK level 5.
	DefaultDictCap = 1 << 23
	// MinDictCap is the smallest dictionary capacity accepted.
	MinDictCap = xzlzma.MinDictCap

	sdkMajor = 9
	sdkMinor = 20

	propsLen      = 5  // properties byte + dictionary capacity
	classicHdrLen = 13 // properties + dictionary capacity + 8-byte size
	zipHdrLen     = 4 + propsLen
)

// Compressor produces ZIP LZMA entry data. It is safe for concurrent use;
// each call runs its own encoder.
type Compressor struct {
	dictCap int
}

// NewCompressor returns a Compressor whose dictionary holds up to dictCap
// bytes; zero selects DefaultDictCap. Smaller payloads use a dictionary sized
// to the payload.
func NewCompressor(dictCap int) (*Compressor, error) {
	if dictCap == 0 {
		dictCap = DefaultDictCap
	}
	cfg := xzlzma.WriterConfig{DictCap: dictCap, SizeInHeader: true}
	if err := cfg.Verify(); err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	return &Compressor{dictCap: dictCap}, nil
}

// CompressBound allows half the input again on top of storing it, which
// covers the literal coding overhead of incompressible data.
func (c *Compressor) CompressBound(n int) int {
	return zipHdrLen + n + n/2 + 64
}

func (c *Compressor) Compress(dst, src []byte) (int, error) {
	if len(dst) < zipHdrLen {
		return 0, simzip.ErrCompressBound
	}

	out := &boundedWriter{buf: make([]byte, 0, classicHdrLen+len(dst)-zipHdrLen)}
	cfg := xzlzma.WriterConfig{
		DictCap:      c.dictCapFor(len(src)),
		SizeInHeader: true,
		Size:         int64(len(src)),
	}
	w, err := cfg.NewWriter(out)
	if err != nil {
		return 0, err
	}
	_, err = w.Write(src)
	if err == nil {
		err = w.Close()
	}
	if out.full {
		return 0, simzip.ErrCompressBound
	}
	if err != nil {
		return 0, err
	}

	// Swap the classic header's 8-byte size for the ZIP version and
	// properties length.
	classic := out.buf
	if len(classic) < classicHdrLen {
		return 0, fmt.Errorf("lzma: short encoder output of %d bytes", len(classic))
	}
	stream := classic[classicHdrLen:]
	if zipHdrLen+len(stream) > len(dst) {
		return 0, simzip.ErrCompressBound
	}
	dst[0] = sdkMajor
	dst[1] = sdkMinor
	binary.LittleEndian.PutUint16(dst[2:], propsLen)
	copy(dst[4:zipHdrLen], classic[:propsLen])
	n := zipHdrLen + copy(dst[zipHdrLen:], stream)
	return n, nil
}

func (c *Compressor) dictCapFor(n int) int {
	switch {
	case n < MinDictCap:
		return MinDictCap
	case n < c.dictCap:
		return n
	default:
		return c.dictCap
	}
}

// boundedWriter appends into a fixed-capacity buffer and refuses to grow it.
type boundedWriter struct {
	buf  []byte
	full bool
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	if len(w.buf)+len(p) > cap(w.buf) {
		w.full = true
		return 0, simzip.ErrCompressBound
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}
