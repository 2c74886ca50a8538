//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package sockets

import "golang.org/x/sys/unix"

var nativeFamily = map[Family]int{
	FamilyINET:  unix.AF_INET,
	FamilyINET6: unix.AF_INET6,
}

var nativeType = map[Type]int{
	TypeStream: unix.SOCK_STREAM,
	TypeDgram:  unix.SOCK_DGRAM,
	TypeRaw:    unix.SOCK_RAW,
}

var nativeProtocol = map[Protocol]int{
	ProtoIP:  unix.IPPROTO_IP,
	ProtoTCP: unix.IPPROTO_TCP,
	ProtoUDP: unix.IPPROTO_UDP,
	ProtoRaw: unix.IPPROTO_RAW,
}

var nativeShutdown = map[ShutdownHow]int{
	ShutdownRead:  unix.SHUT_RD,
	ShutdownWrite: unix.SHUT_WR,
	ShutdownBoth:  unix.SHUT_RDWR,
}

// No LevelIP option is mapped; those pairs fail with ErrOption.
var nativeOptions = map[optionKey]nativeOption{
	{LevelSocket, OptReuseAddr}: {level: unix.SOL_SOCKET, name: unix.SO_REUSEADDR, boolean: true},
	{LevelSocket, OptReusePort}: {level: unix.SOL_SOCKET, name: unix.SO_REUSEPORT, boolean: true},
	{LevelSocket, OptBroadcast}: {level: unix.SOL_SOCKET, name: unix.SO_BROADCAST, boolean: true},
	{LevelSocket, OptRcvBuf}:    {level: unix.SOL_SOCKET, name: unix.SO_RCVBUF},
	{LevelSocket, OptSndBuf}:    {level: unix.SOL_SOCKET, name: unix.SO_SNDBUF},
}

const (
	levelIPv6  = unix.IPPROTO_IPV6
	optV6Only  = unix.IPV6_V6ONLY
	levelSock  = unix.SOL_SOCKET
	optSoError = unix.SO_ERROR
)
