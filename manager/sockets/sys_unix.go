//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package sockets

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

func ignoreEINTR(fn func() error) error {
	for {
		if err := fn(); !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

func ignoreEINTR2[T any](fn func() (T, error)) (T, error) {
	for {
		v, err := fn()
		if !errors.Is(err, unix.EINTR) {
			return v, err
		}
	}
}

func sysSocket(family, typ, proto int) (int, error) {
	// ForkLock keeps the descriptor from leaking into a child forked
	// between socket(2) and the close-on-exec flag being set.
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	fd, err := ignoreEINTR2(func() (int, error) {
		return unix.Socket(family, typ, proto)
	})
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func sysClose(fd int) error {
	// close(2) must not be retried: the descriptor is released even when
	// it reports EINTR.
	return unix.Close(fd)
}

func sysSetNonblock(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}

func sysSetV6Only(fd int, v6Only bool) error {
	v := 0
	if v6Only {
		v = 1
	}
	return unix.SetsockoptInt(fd, levelIPv6, optV6Only, v)
}

func sysBind(fd int, addr Address) error {
	return ignoreEINTR(func() error {
		return unix.Bind(fd, addr.sockaddr())
	})
}

func sysListen(fd, backlog int) error {
	return unix.Listen(fd, backlog)
}

func sysAccept(fd int) (int, Address, error) {
	syscall.ForkLock.RLock()
	nfd, sa, err := ignoreEINTR3(func() (int, unix.Sockaddr, error) {
		return unix.Accept(fd)
	})
	if err == nil {
		unix.CloseOnExec(nfd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return -1, Address{}, err
	}
	peer, err := addressFromSockaddr("accept", sa)
	if err != nil {
		unix.Close(nfd)
		return -1, Address{}, err
	}
	return nfd, peer, nil
}

func ignoreEINTR3[T1, T2 any](fn func() (T1, T2, error)) (T1, T2, error) {
	for {
		v1, v2, err := fn()
		if !errors.Is(err, unix.EINTR) {
			return v1, v2, err
		}
	}
}

// sysConnect starts a connection. An interrupted blocking connect keeps
// going in the kernel, so after EINTR it waits for the socket to become
// writable and reads the outcome from SO_ERROR.
func sysConnect(fd int, addr Address, blocking bool) error {
	err := unix.Connect(fd, addr.sockaddr())
	if !errors.Is(err, unix.EINTR) {
		return err
	}
	if !blocking {
		return unix.EINPROGRESS
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	if _, err := ignoreEINTR2(func() (int, error) {
		return unix.Poll(fds, -1)
	}); err != nil {
		return err
	}
	return sysSocketError(fd)
}

// sysSocketError reads and clears the pending error of fd.
func sysSocketError(fd int) error {
	v, err := unix.GetsockoptInt(fd, levelSock, optSoError)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

func sysSend(fd int, p []byte) (int, error) {
	return ignoreEINTR2(func() (int, error) {
		return unix.Write(fd, p)
	})
}

func sysRecv(fd int, p []byte) (int, error) {
	return ignoreEINTR2(func() (int, error) {
		return unix.Read(fd, p)
	})
}

func sysSendTo(fd int, p []byte, to Address) (int, error) {
	sa := to.sockaddr()
	return ignoreEINTR2(func() (int, error) {
		return unix.SendmsgN(fd, p, nil, sa, 0)
	})
}

// sysRecvFrom receives one datagram. truncated is set when the datagram
// was larger than p and the excess was discarded.
func sysRecvFrom(fd int, p []byte) (n int, from Address, truncated bool, err error) {
	var (
		flags int
		sa    unix.Sockaddr
	)
	for {
		n, _, flags, sa, err = unix.Recvmsg(fd, p, nil, 0)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		return 0, Address{}, false, err
	}
	from, err = addressFromSockaddr("recvfrom", sa)
	if err != nil {
		return n, Address{}, false, err
	}
	return n, from, flags&unix.MSG_TRUNC != 0, nil
}

func sysSetsockoptInt(fd, level, name, value int) error {
	return unix.SetsockoptInt(fd, level, name, value)
}

func sysGetsockoptInt(fd, level, name int) (int, error) {
	return unix.GetsockoptInt(fd, level, name)
}

func sysGetsockname(fd int) (Address, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return Address{}, err
	}
	return addressFromSockaddr("getsockname", sa)
}

func sysGetpeername(fd int) (Address, error) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return Address{}, err
	}
	return addressFromSockaddr("getpeername", sa)
}

func sysShutdown(fd, how int) error {
	return unix.Shutdown(fd, how)
}

func isNotConnected(err error) bool {
	return errors.Is(err, unix.ENOTCONN)
}
