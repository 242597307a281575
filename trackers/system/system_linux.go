//go:build linux

package system

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Collect reads sysinfo(2) and statfs(2) for diskPath.
func Collect(diskPath string) (Info, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return Info{}, fmt.Errorf("sysinfo: %w", err)
	}

	unit := uint64(si.Unit)
	total := uint64(si.Totalram) * unit / mb
	free := uint64(si.Freeram) * unit / mb
	info := Info{
		MemTotalMB:  total,
		MemFreeMB:   free,
		MemUsedMB:   total - free,
		Uptime:      FormatUptime(int64(si.Uptime)),
		LoadAverage: FormatLoad([3]uint64{uint64(si.Loads[0]), uint64(si.Loads[1]), uint64(si.Loads[2])}),
	}

	var st unix.Statfs_t
	if err := unix.Statfs(diskPath, &st); err != nil {
		return info, fmt.Errorf("statfs %s: %w", diskPath, err)
	}
	info.Disk = newDisk(diskPath, uint64(st.Blocks), uint64(st.Bfree), uint64(st.Bavail), uint64(st.Bsize))
	return info, nil
}
