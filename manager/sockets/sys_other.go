//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package sockets

import "errors"

var errNoSockets = errors.ErrUnsupported

func sysSocket(family, typ, proto int) (int, error)        { return -1, errNoSockets }
func sysClose(fd int) error                                { return errNoSockets }
func sysSetNonblock(fd int, nonblocking bool) error        { return errNoSockets }
func sysSetV6Only(fd int, v6Only bool) error               { return errNoSockets }
func sysBind(fd int, addr Address) error                   { return errNoSockets }
func sysListen(fd, backlog int) error                      { return errNoSockets }
func sysAccept(fd int) (int, Address, error)               { return -1, Address{}, errNoSockets }
func sysConnect(fd int, addr Address, blocking bool) error { return errNoSockets }
func sysSocketError(fd int) error                          { return errNoSockets }
func sysSend(fd int, p []byte) (int, error)                { return 0, errNoSockets }
func sysRecv(fd int, p []byte) (int, error)                { return 0, errNoSockets }
func sysSendTo(fd int, p []byte, to Address) (int, error)  { return 0, errNoSockets }
func sysSetsockoptInt(fd, level, name, value int) error    { return errNoSockets }
func sysGetsockoptInt(fd, level, name int) (int, error)    { return 0, errNoSockets }
func sysGetsockname(fd int) (Address, error)               { return Address{}, errNoSockets }
func sysGetpeername(fd int) (Address, error)               { return Address{}, errNoSockets }
func sysShutdown(fd, how int) error                        { return errNoSockets }

func sysRecvFrom(fd int, p []byte) (int, Address, bool, error) {
	return 0, Address{}, false, errNoSockets
}

func isNotConnected(err error) bool { return false }
