// Package bytespool hands out reusable byte buffers for socket I/O.
//
// Buffers come from a fixed ladder of sync.Pools. The largest tier holds a
// maximum-size IP datagram, so a datagram receive never needs a buffer from
// outside the pools.
package bytespool

import "sync"

const (
	numTiers = 6
	tierStep = 2
	// MinSize is the smallest pooled capacity. Smaller requests are
	// allocated directly.
	MinSize = 2048
	// MaxDatagram is the largest payload an IPv4 or IPv6 datagram can carry
	// without jumbograms.
	MaxDatagram = 65535
)

var (
	tiers    [numTiers]sync.Pool
	tierCaps [numTiers]int
)

func init() {
	size := MinSize
	for i := range numTiers {
		n := size
		tiers[i].New = func() any {
			b := make([]byte, n)
			return &b
		}
		tierCaps[i] = n
		size *= tierStep
	}
}

func tierFor(size int) int {
	for i, c := range tierCaps {
		if size <= c {
			return i
		}
	}
	return -1
}

// Alloc returns a slice of length size. Its capacity may be larger.
func Alloc(size int) []byte {
	if size < MinSize {
		return make([]byte, size)
	}
	i := tierFor(size)
	if i < 0 {
		return make([]byte, size)
	}
	bp := tiers[i].Get().(*[]byte)
	return (*bp)[:size]
}

// AllocDatagram returns a buffer able to hold any single datagram.
func AllocDatagram() []byte {
	return Alloc(MaxDatagram)
}

// Free returns b to its tier. Slices that did not come from Alloc are
// accepted too, as long as their capacity matches a tier exactly.
func Free(b []byte) {
	c := cap(b)
	if c < MinSize {
		return
	}
	i := tierFor(c)
	if i < 0 || tierCaps[i] != c {
		return
	}
	b = b[:c]
	tiers[i].Put(&b)
}
