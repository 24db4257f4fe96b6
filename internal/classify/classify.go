package classify

import (
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/geodata"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/ipset"
)

// Result is one country's classification outcome. When the country
// could not be resolved against the dataset, Err is set and the
// country is reported as skipped; it never aborts the others.
type Result struct {
	Code              string
	Name              string
	Blocks            []ipset.Network
	Addresses         uint64 // distinct addresses matched, sum of block sizes
	NetworksFound     int    // dataset ranges listed for this country
	NetworksOptimized int    // dataset ranges after collapsing
	Err               error
}

// Failed reports whether this country was skipped.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Classify intersects the aggregated block set against one country's
// ranges. Blocks wholly inside a range are kept unchanged; partial
// overlaps are split into CIDR-valid sub-blocks covering only the
// intersection. The remainder of a partially matched block is not
// emitted, only matches are reported.
func Classify(country *geodata.Country, blocks []ipset.Network) *Result {
	res := &Result{
		Code:              country.Code,
		Name:              country.Name,
		NetworksFound:     country.RawCount,
		NetworksOptimized: len(country.Ranges()),
	}
	for _, block := range blocks {
		iv := block.Interval()
		for _, r := range country.Overlapping(iv) {
			inter, ok := ipset.Intersect(iv, r)
			if !ok {
				continue
			}
			if inter == iv {
				res.Blocks = append(res.Blocks, block)
				res.Addresses += iv.Size()
				break
			}
			res.Blocks = append(res.Blocks, ipset.Decompose(inter)...)
			res.Addresses += inter.Size()
		}
	}
	return res
}
