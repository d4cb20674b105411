//go:build !linux

package sniffer

import "github.com/pkg/errors"

// OpenLinuxDevice is unavailable outside Linux; use ReplayDevice for
// development and testing on other platforms.
func OpenLinuxDevice(path string) (Device, error) {
	return nil, errors.New("the real sniffer device backend is only available on linux")
}
