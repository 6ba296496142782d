//go:build darwin

package fs

import (
	"os"
	"syscall"
	"time"
)

func sysAttrs(info os.FileInfo) (Attrs, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return Attrs{}, false
	}
	return Attrs{
		UID:   st.Uid,
		GID:   st.Gid,
		CTime: time.Unix(int64(st.Ctimespec.Sec), int64(st.Ctimespec.Nsec)),
	}, true
}
