package geodata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/ipset"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// loadCSV decodes the DataHub geoip2-ipv4 CSV layout. Columns are
// discovered from the header so extra columns and reordering are
// tolerated; only network and country_iso_code are mandatory.
func loadCSV(path string, b *builder) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open geo dataset %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read geo dataset header %s: %w", path, err)
	}
	netCol, codeCol, nameCol := -1, -1, -1
	for i, col := range header {
		switch col {
		case "network":
			netCol = i
		case "country_iso_code":
			codeCol = i
		case "country_name":
			nameCol = i
		}
	}
	if netCol < 0 || codeCol < 0 {
		return fmt.Errorf("geo dataset %s missing network/country_iso_code columns", path)
	}

	skipped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read geo dataset %s: %w", path, err)
		}
		if netCol >= len(row) || codeCol >= len(row) {
			skipped++
			continue
		}
		network, err := ipset.ParseLine(row[netCol])
		if err != nil {
			skipped++
			continue
		}
		name := ""
		if nameCol >= 0 && nameCol < len(row) {
			name = row[nameCol]
		}
		b.add(row[codeCol], name, network.Interval())
	}
	if skipped > 0 {
		logutil.GetLogger(context.Background()).Warn("skipped malformed geo dataset rows",
			zap.String("path", path), zap.Int("count", skipped))
	}
	return nil
}
