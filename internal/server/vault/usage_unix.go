//go:build linux || darwin || freebsd

package vault

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// volumeStats returns total, used and available bytes of the filesystem
// holding path. Available is what an unprivileged user may still write.
func volumeStats(path string) (total, used, available uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, 0, fmt.Errorf("statfs %s: %w", path, err)
	}

	bsize := uint64(st.Bsize) //nolint:unconvert
	total = uint64(st.Blocks) * bsize
	available = uint64(st.Bavail) * bsize
	used = total - uint64(st.Bfree)*bsize
	return total, used, available, nil
}
