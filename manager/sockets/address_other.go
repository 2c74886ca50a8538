//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package sockets

const (
	sizeofSockaddrInet4 = 16
	sizeofSockaddrInet6 = 28
)
