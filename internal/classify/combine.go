package classify

import (
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/ipset"
)

// Combined is the deduplicated union of all successful per-country
// results.
type Combined struct {
	Blocks    []ipset.Network
	Addresses uint64
}

// Combine unions every matched block across countries and re-collapses
// the union into a minimal CIDR-valid set. An address claimed by two
// countries (adjacent or overlapping dataset ranges) appears exactly
// once.
func Combine(results []*Result) *Combined {
	var ivs []ipset.Interval
	for _, r := range results {
		if r == nil || r.Failed() {
			continue
		}
		for _, b := range r.Blocks {
			ivs = append(ivs, b.Interval())
		}
	}
	merged := ipset.Merge(ivs)
	out := &Combined{Blocks: ipset.DecomposeAll(merged)}
	for _, iv := range merged {
		out.Addresses += iv.Size()
	}
	return out
}
