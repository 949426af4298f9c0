//go:build linux

package localstore

import "golang.org/x/sys/unix"

// statfsMax reports the total capacity (used+free) of the filesystem
// backing dir, generalizing the teacher's internal/server getDiskUsage
// (raw syscall.Statfs) onto golang.org/x/sys/unix.
func statfsMax(dir string) (uint64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, false
	}
	return st.Blocks * uint64(st.Bsize), true
}
