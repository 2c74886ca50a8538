package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/OpenListTeam/gosock/common/bytespool"
	"github.com/OpenListTeam/gosock/internal/config"
	"github.com/OpenListTeam/gosock/manager/sockets"
)

// pollInterval is how long the non-blocking loops sleep after a would-block
// result before checking for shutdown and retrying.
const pollInterval = 10 * time.Millisecond

// runServer serves until ctx is cancelled.
func runServer(ctx context.Context, logger *zap.Logger, cfg config.Config) error {
	addr, err := sockets.ParseAddress(cfg.Server.Listen)
	if err != nil {
		return err
	}
	switch cfg.Network {
	case config.NetworkUDP:
		d, err := listenDatagram(addr, cfg.Server)
		if err != nil {
			return err
		}
		defer d.Close()
		logger.Info("datagram echo server listening", zap.Stringer("addr", addr))
		return serveDatagram(ctx, logger, d)
	default:
		ln, err := listenStream(addr, cfg.Server)
		if err != nil {
			return err
		}
		defer ln.Close()
		bound, err := ln.LocalAddr()
		if err != nil {
			logger.Warn("local address unavailable", zap.Error(err))
			bound = addr
		}
		logger.Info("stream echo server listening", zap.Stringer("addr", bound))
		return serveStream(ctx, logger, ln)
	}
}

func serverOptions(sc config.ServerConfig) []sockets.ConfigOption {
	// The accept and receive loops poll so they can notice shutdown.
	opts := []sockets.ConfigOption{sockets.WithBlocking(false)}
	if sc.ReuseAddr {
		opts = append(opts, sockets.WithSockOpt(sockets.LevelSocket, sockets.OptReuseAddr, 1))
	}
	if sc.ReusePort {
		opts = append(opts, sockets.WithSockOpt(sockets.LevelSocket, sockets.OptReusePort, 1))
	}
	if sc.RcvBuf > 0 {
		opts = append(opts, sockets.WithSockOpt(sockets.LevelSocket, sockets.OptRcvBuf, sc.RcvBuf))
	}
	if sc.SndBuf > 0 {
		opts = append(opts, sockets.WithSockOpt(sockets.LevelSocket, sockets.OptSndBuf, sc.SndBuf))
	}
	return opts
}

func listenStream(addr sockets.Address, sc config.ServerConfig) (*sockets.StreamSocket, error) {
	ln, err := sockets.NewStream(addr.Family(), serverOptions(sc)...)
	if err != nil {
		return nil, err
	}
	if err := ln.Bind(addr); err != nil {
		ln.Close()
		return nil, err
	}
	if err := ln.Listen(sc.Backlog); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}

func listenDatagram(addr sockets.Address, sc config.ServerConfig) (*sockets.DatagramSocket, error) {
	d, err := sockets.NewDatagram(addr.Family(), serverOptions(sc)...)
	if err != nil {
		return nil, err
	}
	if err := d.Bind(addr); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// connTracker remembers the descriptors of live connections so shutdown
// can wake their blocked receives. A connection is forgotten before its
// socket is closed, so a tracked descriptor is never a reused one.
type connTracker struct {
	mu     sync.Mutex
	active map[int]struct{}
	closed bool
}

func (t *connTracker) add(fd int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if t.active == nil {
		t.active = make(map[int]struct{})
	}
	t.active[fd] = struct{}{}
	return true
}

func (t *connTracker) remove(fd int) {
	t.mu.Lock()
	delete(t.active, fd)
	t.mu.Unlock()
}

func (t *connTracker) shutdownAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for fd := range t.active {
		shutdownFd(fd)
	}
}

func serveStream(ctx context.Context, logger *zap.Logger, ln *sockets.StreamSocket) error {
	var (
		wg      conc.WaitGroup
		tracker connTracker
	)
	defer wg.Wait()
	defer tracker.shutdownAll()

	for {
		conn, peer, err := ln.Accept()
		if sockets.IsWouldBlock(err) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollInterval):
				continue
			}
		}
		if err != nil {
			if errors.Is(err, &sockets.Error{Kind: sockets.KindIO, Reason: sockets.ReasonAborted}) {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		fd := conn.SockFd()
		if !tracker.add(fd) {
			conn.Close()
			return nil
		}
		wg.Go(func() {
			defer func() {
				tracker.remove(fd)
				conn.Close()
			}()
			n, err := sockets.Copy(conn, conn)
			logger.Debug("connection finished",
				zap.Stringer("peer", peer),
				zap.Int64("bytes", n),
				zap.Error(err))
		})
	}
}

func serveDatagram(ctx context.Context, logger *zap.Logger, d *sockets.DatagramSocket) error {
	buf := bytespool.AllocDatagram()
	defer bytespool.Free(buf)

	for {
		n, from, err := d.RecvFrom(buf)
		switch {
		case sockets.IsWouldBlock(err):
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollInterval):
			}
			continue
		case errors.Is(err, &sockets.Error{Kind: sockets.KindIO, Reason: sockets.ReasonTruncated}):
			logger.Warn("datagram truncated", zap.Stringer("from", from))
		case err != nil:
			return fmt.Errorf("recvfrom: %w", err)
		}

		if _, err := d.SendTo(buf[:n], from); err != nil {
			// A full send buffer drops the reply, as the network could.
			logger.Debug("echo reply failed", zap.Stringer("to", from), zap.Error(err))
		}
	}
}
