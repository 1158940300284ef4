package simzip

import (
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// DefaultDeflateLevel is the level used by the built-in Deflate compressor.
const DefaultDeflateLevel = flate.DefaultCompression

type storeCompressor struct{}

func (storeCompressor) CompressBound(n int) int { return n }

func (storeCompressor) Compress(dst, src []byte) (int, error) {
	if len(dst) < len(src) {
		return 0, ErrCompressBound
	}
	return copy(dst, src), nil
}

// DeflateCompressor produces raw DEFLATE streams at a fixed level.
// Writers are pooled between calls.
type DeflateCompressor struct {
	level int
	pool  sync.Pool
}

// NewDeflateCompressor returns a Deflate compressor for level, which must be
// in the range accepted by flate.NewWriter.
func NewDeflateCompressor(level int) (*DeflateCompressor, error) {
	if _, err := flate.NewWriter(io.Discard, level); err != nil {
		return nil, err
	}
	return newDeflateCompressor(level), nil
}

func newDeflateCompressor(level int) *DeflateCompressor {
	return &DeflateCompressor{level: level}
}

// CompressBound allows one 5-byte block header per 4 KiB of input on top of
// storing it verbatim, plus the final empty block and bit alignment. The
// flate writer falls back to stored blocks when coding would expand the data.
func (d *DeflateCompressor) CompressBound(n int) int {
	return n + 5*(n/4096+1) + 16
}

func (d *DeflateCompressor) Compress(dst, src []byte) (int, error) {
	out := &boundedWriter{buf: dst[:0]}
	fw, ok := d.pool.Get().(*flate.Writer)
	if ok {
		fw.Reset(out)
	} else {
		var err error
		fw, err = flate.NewWriter(out, d.level)
		if err != nil {
			return 0, err
		}
	}
	defer d.pool.Put(fw)

	if _, err := fw.Write(src); err != nil {
		return 0, err
	}
	if err := fw.Close(); err != nil {
		return 0, err
	}
	return len(out.buf), nil
}

// boundedWriter appends into a fixed-capacity buffer and refuses to grow it.
type boundedWriter struct {
	buf []byte
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	if len(w.buf)+len(p) > cap(w.buf) {
		return 0, ErrCompressBound
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}
