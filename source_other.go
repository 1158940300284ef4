//go:build !linux && !darwin && !freebsd && !netbsd

package simzip

import "io/fs"

// fillUnixMetadata leaves owner and access/change times unset where the
// platform stat result does not expose them.
func fillUnixMetadata(info fs.FileInfo, m *UnixMetadata) {}
