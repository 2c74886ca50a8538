package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/OpenListTeam/gosock/common/bytespool"
	"github.com/OpenListTeam/gosock/internal/config"
	"github.com/OpenListTeam/gosock/manager/sockets"
)

// runClient sends the configured message and returns the echoed bytes.
func runClient(ctx context.Context, logger *zap.Logger, cfg config.Config) ([]byte, error) {
	addr, err := sockets.ParseAddress(cfg.Client.Remote)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Client.Timeout)
	defer cancel()

	if cfg.Network == config.NetworkUDP {
		return datagramRoundTrip(ctx, addr, []byte(cfg.Client.Message))
	}
	s, err := dialStream(ctx, logger, addr, cfg.Client.Retry)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return streamRoundTrip(s, []byte(cfg.Client.Message))
}

// retryableConnect reports whether a failed connect may succeed later, e.g.
// because the server has not started listening yet.
func retryableConnect(err error) bool {
	for _, r := range []sockets.Reason{sockets.ReasonRefused, sockets.ReasonTimeout, sockets.ReasonUnreachable} {
		if errors.Is(err, &sockets.Error{Kind: sockets.KindConnect, Reason: r}) {
			return true
		}
	}
	return false
}

// dialStream connects to addr, retrying with exponential backoff up to
// rc.MaxAttempts times.
func dialStream(ctx context.Context, logger *zap.Logger, addr sockets.Address, rc config.RetryConfig) (*sockets.StreamSocket, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.InitialInterval
	b.MaxInterval = rc.MaxInterval
	b.Reset()

	for attempt := 1; ; attempt++ {
		s, err := sockets.NewStream(addr.Family())
		if err != nil {
			return nil, err
		}
		err = s.Connect(addr)
		if err == nil {
			return s, nil
		}
		s.Close()

		if !retryableConnect(err) || attempt >= rc.MaxAttempts {
			return nil, fmt.Errorf("connect %s after %d attempts: %w", addr, attempt, err)
		}
		sleep := b.NextBackOff()
		if sleep == backoff.Stop {
			sleep = rc.MaxInterval
		}
		logger.Debug("connect failed, retrying",
			zap.Stringer("addr", addr),
			zap.Int("attempt", attempt),
			zap.Duration("sleep", sleep),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// streamRoundTrip sends msg, half-closes and reads until the server closes.
func streamRoundTrip(s *sockets.StreamSocket, msg []byte) ([]byte, error) {
	if _, err := sockets.SendAll(s, msg); err != nil {
		return nil, err
	}
	if err := s.Shutdown(sockets.ShutdownWrite); err != nil {
		return nil, err
	}
	return io.ReadAll(s)
}

// datagramRoundTrip sends msg once and waits for the reply until ctx ends.
func datagramRoundTrip(ctx context.Context, addr sockets.Address, msg []byte) ([]byte, error) {
	d, err := sockets.NewDatagram(addr.Family(), sockets.WithBlocking(false))
	if err != nil {
		return nil, err
	}
	defer d.Close()

	if _, err := d.SendTo(msg, addr); err != nil {
		return nil, err
	}

	buf := bytespool.AllocDatagram()
	defer bytespool.Free(buf)
	for {
		n, from, err := d.RecvFrom(buf)
		if sockets.IsWouldBlock(err) {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("waiting for reply from %s: %w", addr, ctx.Err())
			case <-time.After(pollInterval):
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if !from.Equal(addr) {
			continue
		}
		return append([]byte(nil), buf[:n]...), nil
	}
}
