package ipset

import "math/bits"

// Decompose re-expresses a contiguous span as the minimal ordered
// sequence of CIDR-valid blocks exactly covering it, no gaps and no
// overlaps. Greedy: each step takes the largest block that both starts
// aligned at the cursor and fits in the remaining length, so no
// shorter covering exists.
func Decompose(iv Interval) []Network {
	if iv.End < iv.Start {
		return nil
	}
	out := make([]Network, 0, 1)
	s := uint64(iv.Start)
	e := uint64(iv.End)
	for s <= e {
		align := bits.TrailingZeros64(s)
		if align > 32 {
			align = 32 // s == 0 can host the whole space at most
		}
		size := bits.Len64(e-s+1) - 1
		hostBits := min(align, size)
		out = append(out, Network{Addr: uint32(s), Prefix: uint8(32 - hostBits)})
		s += 1 << hostBits
	}
	return out
}

// DecomposeAll flattens a merged interval set into CIDR blocks,
// preserving order.
func DecomposeAll(ivs []Interval) []Network {
	out := make([]Network, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, Decompose(iv)...)
	}
	return out
}
