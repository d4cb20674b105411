//go:build linux

package sniffer

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// schedParam mirrors struct sched_param from <sched.h>: a single int field
// holding the static priority.
type schedParam struct {
	priority int32
}

// boostPriority switches the calling OS thread to SCHED_FIFO at the given
// priority, mirroring the original's pthread_attr_setschedpolicy/
// setschedparam pairing. It must be called from the goroutine that will
// run the sniffer loop, locked to its OS thread by the caller.
func boostPriority(priority int) error {
	param := schedParam{priority: int32(priority)}
	_, _, errno := unix.Syscall(
		unix.SYS_SCHED_SETSCHEDULER,
		0, // the calling thread
		uintptr(unix.SCHED_FIFO),
		uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return errors.Wrap(errno, "priority boosting requires real time thread support")
	}
	return nil
}
