// Package system reports host memory, load, uptime and disk usage.
package system

import "fmt"

// Info is a host snapshot. Sizes are in megabytes.
type Info struct {
	MemTotalMB  uint64 `json:"memTotalMB"`
	MemFreeMB   uint64 `json:"memFreeMB"`
	MemUsedMB   uint64 `json:"memUsedMB"`
	Uptime      string `json:"uptime"`
	LoadAverage string `json:"loadAverage"`
	Disk        *Disk  `json:"disk,omitempty"`
}

// Disk describes the filesystem holding a path.
type Disk struct {
	Path        string  `json:"path"`
	TotalMB     uint64  `json:"totalMB"`
	UsedMB      uint64  `json:"usedMB"`
	AvailableMB uint64  `json:"availableMB"`
	FreeMB      uint64  `json:"freeMB"`
	PercentUsed float64 `json:"percentUsed"`
}

const mb = 1024 * 1024

// FormatUptime renders seconds as "1d 02h 03m 04s".
func FormatUptime(seconds int64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%dd %02dh %02dm %02ds", days, hours, minutes, secs)
}

// FormatLoad renders the kernel's fixed-point load averages (scaled by 65536).
func FormatLoad(loads [3]uint64) string {
	return fmt.Sprintf("1-min: %.2f, 5-min: %.2f, 15-min: %.2f",
		float64(loads[0])/65536.0, float64(loads[1])/65536.0, float64(loads[2])/65536.0)
}

func newDisk(path string, blocks, bfree, bavail, bsize uint64) *Disk {
	total := blocks * bsize
	free := bfree * bsize
	used := total - free
	d := &Disk{
		Path:        path,
		TotalMB:     total / mb,
		UsedMB:      used / mb,
		AvailableMB: bavail * bsize / mb,
		FreeMB:      free / mb,
	}
	if total > 0 {
		d.PercentUsed = float64(used) / float64(total) * 100
	}
	return d
}
