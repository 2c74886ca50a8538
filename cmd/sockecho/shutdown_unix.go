//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package main

import "golang.org/x/sys/unix"

// shutdownFd wakes any receive blocked on fd without releasing it.
func shutdownFd(fd int) {
	_ = unix.Shutdown(fd, unix.SHUT_RDWR)
}
