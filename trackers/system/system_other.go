//go:build !linux

package system

import "errors"

// Collect is only implemented on Linux.
func Collect(diskPath string) (Info, error) {
	return Info{}, errors.New("system info not supported on this platform")
}
