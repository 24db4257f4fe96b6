package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/ipset"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/stats"
)

// AggregateFileName holds the full merged set.
const AggregateFileName = "aggregated.txt"

// StatsFileName is the markdown run report.
const StatsFileName = "stats.md"

// CountryFileName returns the per-country output name, matching the
// historical layout.
func CountryFileName(code string) string {
	return "aggregated-" + strings.ToLower(code) + "-only.txt"
}

// CombinedFileName names the multi-country file after its members, up
// to three codes; beyond that a count keeps the name bounded.
func CombinedFileName(codes []string) string {
	lower := make([]string, 0, len(codes))
	for _, c := range codes {
		lower = append(lower, strings.ToLower(c))
	}
	suffix := strings.Join(lower, "-")
	if len(lower) > 3 {
		suffix = fmt.Sprintf("multi-%dcountries", len(lower))
	}
	return "aggregated-" + suffix + "-combined.txt"
}

// Writer renders run outputs into one directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteBlocklist writes one CIDR block per line, canonical form.
func (w *Writer) WriteBlocklist(name string, blocks []ipset.Network) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output %s: %w", path, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	for _, b := range blocks {
		fmt.Fprintln(bw, b.String())
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}

// WriteStats renders the markdown run report with the country pie
// chart, summary and per-country table.
func (w *Writer) WriteStats(snap stats.Snapshot) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	var b strings.Builder
	b.WriteString("# Multi-Country IP Aggregation Statistics\n\n")
	fmt.Fprintf(&b, "**Last Updated:** %s\n\n", snap.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("## Country Distribution\n\n")
	b.WriteString(MermaidPie(snap.Countries, snap.AggregatedAddresses))
	b.WriteString("\n\n")

	b.WriteString("## Overall Summary\n\n")
	fmt.Fprintf(&b, "- **Raw Input Lines:** %d\n", snap.RawLines)
	fmt.Fprintf(&b, "- **Invalid Lines Skipped:** %d\n", snap.InvalidLines)
	if snap.ResolvedHosts > 0 {
		fmt.Fprintf(&b, "- **Hostnames Resolved:** %d\n", snap.ResolvedHosts)
	}
	fmt.Fprintf(&b, "- **Networks Found:** %d\n", snap.NetworksParsed)
	fmt.Fprintf(&b, "- **Networks Optimized:** %d\n", snap.NetworksMerged)
	fmt.Fprintf(&b, "- **Aggregated Addresses:** %d\n", snap.AggregatedAddresses)
	fmt.Fprintf(&b, "- **Countries Processed:** %d\n", len(snap.Countries))
	fmt.Fprintf(&b, "- **Combined Unique Addresses:** %d\n", snap.CombinedAddresses)
	if snap.CombinedFile != "" {
		fmt.Fprintf(&b, "- **Combined Output File:** `%s`\n", snap.CombinedFile)
	}
	overall := 0.0
	if snap.AggregatedAddresses > 0 {
		overall = float64(snap.CombinedAddresses) / float64(snap.AggregatedAddresses) * 100
	}
	fmt.Fprintf(&b, "- **Overall Filter Rate:** %.2f%%\n\n", overall)

	b.WriteString("## Per-Country Results\n\n")
	b.WriteString("| Country | Code | Networks Found | Networks Optimized | IPs Matched | Filter Rate | Output File |\n")
	b.WriteString("|---------|------|----------------|--------------------|-------------|-------------|-------------|\n")
	for _, c := range snap.Countries {
		output := "skipped"
		if c.Skipped {
			if c.Reason != "" {
				output = "skipped: " + c.Reason
			}
		} else {
			output = "`" + c.OutputFile + "`"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %.2f%% | %s |\n",
			c.Name, c.Code, c.NetworksFound, c.NetworksOptimized,
			c.AddressesMatched, c.FilterRate(snap.AggregatedAddresses), output)
	}
	b.WriteString("\n## IP Sources\n\n")
	for i, src := range snap.Sources {
		fmt.Fprintf(&b, "- **Source %d:** %s\n", i+1, src)
	}
	b.WriteString("\n")

	path := filepath.Join(w.dir, StatsFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write stats %s: %w", path, err)
	}
	return nil
}
