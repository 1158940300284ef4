// Package simzip writes ZIP archives from in-memory buffers and files on disk.
//
// An Archive collects entries and writes them in one Store call. Each entry's
// local header is written with placeholder CRC-32 and compressed size, the
// payload follows, and the header is then patched in place, so the output must
// be seekable (a file, or any io.WriteSeeker given to StoreTo). No data
// descriptors are used.
//
//	a := simzip.NewArchive("out.zip", simzip.WithComment("build 42"))
//	a.Add(simzip.NewEntry("hello.txt", []byte("hello")))
//	e := simzip.EntryFromFile("bin/tool", "bin")
//	e.Method = simzip.Deflate
//	a.Add(e)
//	if err := a.Store(); err != nil {
//		// the partially written out.zip must be discarded
//	}
//
// Entries carry Unix metadata in the Info-ZIP extra fields: the extended
// timestamp (0x5455) in both headers and the owner field (0x7875) in the
// central directory.
//
// Only Store and Deflate are built in. Other declared methods fail the store
// with ErrUnsupportedCompression unless a Compressor is registered for them;
// package lzma provides one for LZMA.
// Zip64 and multi-disk archives are not supported.
package simzip
