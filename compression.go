package simzip

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Compression is a ZIP compression method. Its value is the method code
// stored in the local and central headers.
type Compression uint16

// Compression methods defined by the ZIP specification. Only Store and
// Deflate have built-in compressors; the others can be declared on an entry
// but fail when the archive is stored unless a compressor is registered.
const (
	Store     Compression = 0  // no compression
	Shrink    Compression = 1  // LZW
	Reduce1   Compression = 2  // reduced with compression factor 1
	Reduce2   Compression = 3  // reduced with compression factor 2
	Reduce3   Compression = 4  // reduced with compression factor 3
	Reduce4   Compression = 5  // reduced with compression factor 4
	Implode   Compression = 6  // imploded
	Deflate   Compression = 8  // DEFLATE compressed
	Deflate64 Compression = 9  // enhanced DEFLATE
	BZIP2     Compression = 12 // bzip2
	LZMA      Compression = 14 // LZMA
	PPMd      Compression = 98 // PPMd version I, rev 1
)

var compressionNames = map[Compression]string{
	Store:     "store",
	Shrink:    "shrink",
	Reduce1:   "reduce1",
	Reduce2:   "reduce2",
	Reduce3:   "reduce3",
	Reduce4:   "reduce4",
	Implode:   "implode",
	Deflate:   "deflate",
	Deflate64: "deflate64",
	BZIP2:     "bzip2",
	LZMA:      "lzma",
	PPMd:      "ppmd",
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return "method(" + strconv.Itoa(int(c)) + ")"
}

// Valid reports whether c is one of the declared methods.
func (c Compression) Valid() bool {
	_, ok := compressionNames[c]
	return ok
}

// Reduction returns the Reduce method for a compression factor in 1..4.
func Reduction(factor int) (Compression, error) {
	if factor < 1 || factor > 4 {
		return 0, fmt.Errorf("simzip: reduction factor %d out of range 1..4", factor)
	}
	return Reduce1 + Compression(factor-1), nil
}

// ParseCompression maps a method name as returned by String back to its
// Compression.
func ParseCompression(s string) (Compression, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range compressionNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("simzip: unknown compression method %q", s)
}

// A Compressor turns a whole payload into its compressed form.
//
// CompressBound returns the largest output Compress can produce for n input
// bytes. Compress writes into dst, which has at least CompressBound(len(src))
// bytes, and returns how many it used. A Compressor must be safe to use from
// multiple goroutines.
type Compressor interface {
	CompressBound(n int) int
	Compress(dst, src []byte) (int, error)
}

var compressors sync.Map // map[Compression]Compressor

func init() {
	compressors.Store(Store, Compressor(storeCompressor{}))
	compressors.Store(Deflate, Compressor(newDeflateCompressor(DefaultDeflateLevel)))
}

// RegisterCompressor registers a compressor for a method at package level.
// The built-in Store and Deflate compressors cannot be replaced here; use
// Archive.RegisterCompressor to override them for one archive.
func RegisterCompressor(method Compression, comp Compressor) {
	if _, dup := compressors.LoadOrStore(method, comp); dup {
		panic("compressor already registered")
	}
}

func compressor(method Compression) Compressor {
	ci, ok := compressors.Load(method)
	if !ok {
		return nil
	}
	return ci.(Compressor)
}
