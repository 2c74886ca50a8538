//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package sockets

var (
	nativeFamily   = map[Family]int{}
	nativeType     = map[Type]int{}
	nativeProtocol = map[Protocol]int{}
	nativeShutdown = map[ShutdownHow]int{}
	nativeOptions  = map[optionKey]nativeOption{}
)
