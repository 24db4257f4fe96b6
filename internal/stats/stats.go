package stats

import "time"

// CountryStats is one country's share of the final report.
type CountryStats struct {
	Code              string
	Name              string
	NetworksFound     int
	NetworksOptimized int
	BlocksMatched     int
	AddressesMatched  uint64
	Skipped           bool
	Reason            string
	OutputFile        string
}

// Snapshot is the full set of counters at run end. All counts are
// produced monotonically in one pass and never revised.
type Snapshot struct {
	GeneratedAt         time.Time
	Sources             []string
	RawLines            int
	InvalidLines        int
	ResolvedHosts       int
	NetworksParsed      int    // networks found across all sources
	NetworksMerged      int    // networks after merge and decomposition
	AggregatedAddresses uint64 // distinct addresses in the aggregate
	Countries           []CountryStats
	CombinedBlocks      int
	CombinedAddresses   uint64
	CombinedFile        string
}

// FilterRate is the share of parsed networks a country matched,
// measured in addresses against the given total.
func (c CountryStats) FilterRate(totalAddresses uint64) float64 {
	if totalAddresses == 0 {
		return 0
	}
	return float64(c.AddressesMatched) / float64(totalAddresses) * 100
}

// Collector is a passive accumulator fed by every pipeline stage. It
// never causes control-flow changes; stages report, the collector
// counts.
type Collector struct {
	snap Snapshot
}

func NewCollector() *Collector {
	return &Collector{snap: Snapshot{GeneratedAt: time.Now().UTC()}}
}

func (c *Collector) AddSource(spec string)  { c.snap.Sources = append(c.snap.Sources, spec) }
func (c *Collector) Line()                  { c.snap.RawLines++ }
func (c *Collector) Invalid()               { c.snap.InvalidLines++ }
func (c *Collector) Resolved(hosts int)     { c.snap.ResolvedHosts += hosts }
func (c *Collector) Parsed()                { c.snap.NetworksParsed++ }
func (c *Collector) Country(s CountryStats) { c.snap.Countries = append(c.snap.Countries, s) }

func (c *Collector) Merged(blocks int, addresses uint64) {
	c.snap.NetworksMerged = blocks
	c.snap.AggregatedAddresses = addresses
}

func (c *Collector) Combined(file string, blocks int, addresses uint64) {
	c.snap.CombinedFile = file
	c.snap.CombinedBlocks = blocks
	c.snap.CombinedAddresses = addresses
}

// Snapshot returns a copy of the accumulated counters.
func (c *Collector) Snapshot() Snapshot {
	out := c.snap
	out.Sources = append([]string(nil), c.snap.Sources...)
	out.Countries = append([]CountryStats(nil), c.snap.Countries...)
	return out
}
