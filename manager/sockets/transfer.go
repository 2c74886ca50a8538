package sockets

import (
	"errors"
	"io"

	"github.com/OpenListTeam/gosock/common/bytespool"
)

// Sender is the send half of a connected socket.
type Sender interface {
	Send(p []byte) (int, error)
}

// Receiver is the receive half of a connected socket.
type Receiver interface {
	Recv(p []byte) (int, error)
}

const copyBufferSize = 32 * 1024

// SendAll calls Send until all of p has been sent. It returns the number of
// bytes sent before the first error. On a non-blocking socket the error may
// match ErrWouldBlock with some bytes already sent; the caller resumes from
// p[n:].
func SendAll(s Sender, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := s.Send(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// RecvFull calls Recv until p is full. A peer shutdown before that yields
// io.ErrUnexpectedEOF, or io.EOF when nothing was read at all.
func RecvFull(r Receiver, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := r.Recv(p[total:])
		total += n
		if errors.Is(err, io.EOF) {
			if total == 0 {
				return 0, io.EOF
			}
			return total, io.ErrUnexpectedEOF
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Copy moves bytes from src to dst until src reports io.EOF. It returns
// the number of bytes written to dst.
func Copy(dst Sender, src Receiver) (int64, error) {
	buf := bytespool.Alloc(copyBufferSize)
	defer bytespool.Free(buf)

	var written int64
	for {
		n, err := src.Recv(buf)
		if n > 0 {
			w, werr := SendAll(dst, buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
		}
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
