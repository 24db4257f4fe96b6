package ipset

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrNotAligned reports an interval whose length is not a power of two
// or whose start is not aligned to that length. It only fires on
// intervals that did not come out of Decompose, so hitting it signals
// a broken invariant rather than bad input.
var ErrNotAligned = errors.New("ipset: interval is not CIDR aligned")

// Interval is a closed range of IPv4 addresses in host byte order.
type Interval struct {
	Start uint32
	End   uint32
}

// Size returns the number of addresses the interval covers.
func (iv Interval) Size() uint64 {
	return uint64(iv.End-iv.Start) + 1
}

// Interval expands the network to the closed address range it covers.
// The address is masked down to the prefix boundary here.
func (n Network) Interval() Interval {
	m := prefixMask(n.Prefix)
	start := n.Addr & m
	return Interval{Start: start, End: start | ^m}
}

// FromInterval converts a span back to CIDR form.
func FromInterval(iv Interval) (Network, error) {
	if iv.End < iv.Start {
		return Network{}, fmt.Errorf("%w: end below start", ErrNotAligned)
	}
	length := iv.Size()
	if length&(length-1) != 0 {
		return Network{}, fmt.Errorf("%w: size %d not a power of two", ErrNotAligned, length)
	}
	hostBits := bits.TrailingZeros64(length)
	if uint64(iv.Start)&(length-1) != 0 {
		return Network{}, fmt.Errorf("%w: start %d misaligned for size %d", ErrNotAligned, iv.Start, length)
	}
	return Network{Addr: iv.Start, Prefix: uint8(32 - hostBits)}, nil
}

func prefixMask(prefix uint8) uint32 {
	if prefix == 0 {
		return 0
	}
	return ^uint32(0) << (32 - prefix)
}
