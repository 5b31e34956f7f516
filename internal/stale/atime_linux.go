//go:build linux

package stale

import (
	"io/fs"
	"syscall"
	"time"
)

func accessTime(info fs.FileInfo) (time.Time, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return time.Time{}, false
	}
	at := time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec))
	if at.Unix() == 0 {
		return time.Time{}, false
	}
	return at, true
}
