package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/stats"
)

// topCountries limits the pie chart to the strongest contributors; the
// rest fold into Other/Unfiltered.
const topCountries = 19

// minSlicePercent hides slices that would render as zero anyway.
const minSlicePercent = 0.1

// MermaidPie renders the country distribution pie chart for the stats
// report. Rates are measured in addresses against the aggregated
// total.
func MermaidPie(countries []stats.CountryStats, totalAddresses uint64) string {
	if totalAddresses == 0 {
		return "```mermaid\npie title No IPs processed\n\"No Data\" : 100\n```"
	}

	sorted := append([]stats.CountryStats(nil), countries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AddressesMatched > sorted[j].AddressesMatched
	})
	if len(sorted) > topCountries {
		sorted = sorted[:topCountries]
	}

	var entries []string
	var topRate float64
	for _, c := range sorted {
		if c.AddressesMatched == 0 {
			continue
		}
		rate := c.FilterRate(totalAddresses)
		if rate < minSlicePercent {
			continue
		}
		entries = append(entries, fmt.Sprintf("%q : %.1f", c.Name, rate))
		topRate += rate
	}
	if other := 100 - topRate; other >= minSlicePercent {
		entries = append(entries, fmt.Sprintf("%q : %.1f", "Other/Unfiltered", other))
	}
	if len(entries) == 0 {
		return "```mermaid\npie showData title IP Blocklist Distribution by Country\n\"No significant data\" : 100\n```"
	}
	return "```mermaid\npie showData title IP Blocklist Distribution by Country\n" +
		strings.Join(entries, "\n") + "\n```"
}
