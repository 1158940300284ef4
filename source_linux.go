//go:build linux

package simzip

import (
	"io/fs"
	"syscall"
)

// fillUnixMetadata copies owner and access/change times from a stat result.
func fillUnixMetadata(info fs.FileInfo, m *UnixMetadata) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		m.UID = stat.Uid
		m.GID = stat.Gid
		m.Accessed = int64(stat.Atim.Sec) //nolint:unconvert // int32 on 32-bit targets
		m.Changed = int64(stat.Ctim.Sec)  //nolint:unconvert // int32 on 32-bit targets
	}
}
