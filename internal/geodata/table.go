package geodata

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/ipset"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ErrCountryNotFound reports a requested country code that is absent
// from the loaded dataset. The failure is scoped to that country,
// classification of the others proceeds.
var ErrCountryNotFound = errors.New("geodata: country not found in dataset")

// Country holds one country's assigned IPv4 ranges, sorted by start
// and disjoint after build. Read-only once built, safe to share across
// classification workers.
type Country struct {
	Code     string
	Name     string
	RawCount int // ranges as listed in the dataset, before collapsing
	ranges   []ipset.Interval
}

// NewCountry builds a standalone country entry from raw ranges,
// collapsing them the same way dataset loading does.
func NewCountry(code, name string, ranges []ipset.Interval) *Country {
	return &Country{
		Code:     strings.ToUpper(strings.TrimSpace(code)),
		Name:     strings.TrimSpace(name),
		RawCount: len(ranges),
		ranges:   ipset.Merge(ranges),
	}
}

// Ranges returns the collapsed range list.
func (c *Country) Ranges() []ipset.Interval {
	return c.ranges
}

// Overlapping returns every range intersecting the candidate
// interval. Ranges are disjoint and sorted, so their ends are sorted
// too and a binary search on end plus a forward scan is exact.
func (c *Country) Overlapping(iv ipset.Interval) []ipset.Interval {
	idx := sort.Search(len(c.ranges), func(i int) bool {
		return c.ranges[i].End >= iv.Start
	})
	var out []ipset.Interval
	for ; idx < len(c.ranges) && c.ranges[idx].Start <= iv.End; idx++ {
		out = append(out, c.ranges[idx])
	}
	return out
}

// Table maps ISO 3166-1 alpha-2 codes to country range lists. Built
// once per run and immutable afterwards.
type Table struct {
	countries map[string]*Country
	byName    map[string]*Country
}

// Country resolves a requested country by ISO code, falling back to
// the dataset's country name the way the original CSV filter matched
// either column.
func (t *Table) Country(code string) (*Country, error) {
	if c, ok := t.countries[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return c, nil
	}
	if c, ok := t.byName[strings.ToLower(strings.TrimSpace(code))]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCountryNotFound, code)
}

// Codes lists every country present in the dataset.
func (t *Table) Codes() []string {
	out := make([]string, 0, len(t.countries))
	for code := range t.countries {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Load builds the table from a dataset file. The decoder is picked by
// extension: .mmdb uses the MaxMind binary reader, everything else is
// treated as the geoip2-ipv4 CSV layout.
func Load(ctx context.Context, path string) (*Table, error) {
	b := newBuilder()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mmdb":
		err = loadMMDB(path, b)
	default:
		err = loadCSV(path, b)
	}
	if err != nil {
		return nil, err
	}
	table := b.build()
	logutil.GetLogger(ctx).Info("geo dataset loaded",
		zap.String("path", path), zap.Int("countries", len(table.countries)))
	return table, nil
}

type builder struct {
	countries map[string]*Country
}

func newBuilder() *builder {
	return &builder{countries: make(map[string]*Country, 256)}
}

func (b *builder) add(code, name string, iv ipset.Interval) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return
	}
	c, ok := b.countries[code]
	if !ok {
		c = &Country{Code: code, Name: strings.TrimSpace(name)}
		b.countries[code] = c
	}
	if c.Name == "" {
		c.Name = strings.TrimSpace(name)
	}
	c.RawCount++
	c.ranges = append(c.ranges, iv)
}

func (b *builder) build() *Table {
	t := &Table{
		countries: b.countries,
		byName:    make(map[string]*Country, len(b.countries)),
	}
	for _, c := range b.countries {
		c.ranges = ipset.Merge(c.ranges)
		if c.Name != "" {
			t.byName[strings.ToLower(c.Name)] = c
		}
	}
	return t
}
