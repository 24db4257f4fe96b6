package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/geodata"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/ipset"
)

func blocks(t *testing.T, lines ...string) []ipset.Network {
	t.Helper()
	out := make([]ipset.Network, 0, len(lines))
	for _, l := range lines {
		n, err := ipset.ParseLine(l)
		if err != nil {
			t.Fatalf("parse %q: %v", l, err)
		}
		out = append(out, n)
	}
	return out
}

func cidrs(ns []ipset.Network) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.String())
	}
	return out
}

func TestClassifyWholeBlock(t *testing.T) {
	de := geodata.NewCountry("DE", "Germany", []ipset.Interval{{Start: 0x0a000000, End: 0x0affffff}})
	res := Classify(de, blocks(t, "10.0.0.0/24", "172.16.0.0/12"))
	if got := cidrs(res.Blocks); len(got) != 1 || got[0] != "10.0.0.0/24" {
		t.Fatalf("blocks = %v", got)
	}
	if res.Addresses != 256 {
		t.Fatalf("addresses = %d, want 256", res.Addresses)
	}
}

func TestClassifyPartialBlockSplits(t *testing.T) {
	// country owns only the lower half of the candidate /24
	de := geodata.NewCountry("DE", "Germany", []ipset.Interval{{Start: 0x0a000000, End: 0x0a00007f}})
	res := Classify(de, blocks(t, "10.0.0.0/24"))
	if got := cidrs(res.Blocks); len(got) != 1 || got[0] != "10.0.0.0/25" {
		t.Fatalf("blocks = %v, want [10.0.0.0/25]", got)
	}
	if res.Addresses != 128 {
		t.Fatalf("addresses = %d, want 128", res.Addresses)
	}
}

func TestClassifyBlockAcrossTwoRanges(t *testing.T) {
	c := geodata.NewCountry("FR", "France", []ipset.Interval{
		{Start: 0x0a000000, End: 0x0a00003f},
		{Start: 0x0a0000c0, End: 0x0a0000ff},
	})
	res := Classify(c, blocks(t, "10.0.0.0/24"))
	want := []string{"10.0.0.0/26", "10.0.0.192/26"}
	got := cidrs(res.Blocks)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("blocks = %v, want %v", got, want)
	}
	if res.Addresses != 128 {
		t.Fatalf("addresses = %d, want 128", res.Addresses)
	}
}

func TestClassifyExactness(t *testing.T) {
	ranges := []ipset.Interval{{Start: 0x0a000010, End: 0x0a000090}}
	c := geodata.NewCountry("DE", "Germany", ranges)
	agg := blocks(t, "10.0.0.0/24")
	res := Classify(c, agg)

	inResult := func(addr uint32) bool {
		for _, b := range res.Blocks {
			iv := b.Interval()
			if addr >= iv.Start && addr <= iv.End {
				return true
			}
		}
		return false
	}
	for addr := uint32(0x0a000000); addr <= 0x0a0000ff; addr++ {
		inRange := addr >= 0x0a000010 && addr <= 0x0a000090
		if inResult(addr) != inRange {
			t.Fatalf("address %#x: in result %t, in country %t", addr, inResult(addr), inRange)
		}
	}
}

func TestCombineDeduplicates(t *testing.T) {
	// malformed dataset: DE and FR both claim 10.0.0.5
	de := Classify(geodata.NewCountry("DE", "Germany", []ipset.Interval{{Start: 0x0a000005, End: 0x0a000005}}),
		blocks(t, "10.0.0.0/24"))
	fr := Classify(geodata.NewCountry("FR", "France", []ipset.Interval{{Start: 0x0a000005, End: 0x0a000005}}),
		blocks(t, "10.0.0.0/24"))

	combined := Combine([]*Result{de, fr})
	if got := cidrs(combined.Blocks); len(got) != 1 || got[0] != "10.0.0.5/32" {
		t.Fatalf("combined blocks = %v, want [10.0.0.5/32]", got)
	}
	if combined.Addresses != 1 {
		t.Fatalf("combined addresses = %d, want 1", combined.Addresses)
	}
}

func TestCombineSkipsFailed(t *testing.T) {
	ok := Classify(geodata.NewCountry("DE", "Germany", []ipset.Interval{{Start: 1, End: 1}}),
		blocks(t, "0.0.0.1/32"))
	failed := &Result{Code: "XX", Err: errors.New("no such country")}
	combined := Combine([]*Result{ok, failed, nil})
	if len(combined.Blocks) != 1 {
		t.Fatalf("combined blocks = %v", combined.Blocks)
	}
}

func TestCombineAdjacentCountries(t *testing.T) {
	de := Classify(geodata.NewCountry("DE", "Germany", []ipset.Interval{{Start: 0x0a000000, End: 0x0a00007f}}),
		blocks(t, "10.0.0.0/24"))
	fr := Classify(geodata.NewCountry("FR", "France", []ipset.Interval{{Start: 0x0a000080, End: 0x0a0000ff}}),
		blocks(t, "10.0.0.0/24"))
	combined := Combine([]*Result{de, fr})
	if got := cidrs(combined.Blocks); len(got) != 1 || got[0] != "10.0.0.0/24" {
		t.Fatalf("combined blocks = %v, want [10.0.0.0/24]", got)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	csv := "network,country_iso_code,country_name\n" +
		"10.0.0.0/25,DE,Germany\n" +
		"10.0.0.128/25,FR,France\n"
	path := filepath.Join(dir, "geo.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	table, err := geodata.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load table: %v", err)
	}

	agg := blocks(t, "10.0.0.0/24")
	results := Run(context.Background(), table, []string{"DE", "FR", "XX"}, agg, 2)
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Code != "DE" || results[1].Code != "FR" || results[2].Code != "XX" {
		t.Fatalf("results out of request order: %v %v %v", results[0].Code, results[1].Code, results[2].Code)
	}
	if results[2].Err == nil || !errors.Is(results[2].Err, geodata.ErrCountryNotFound) {
		t.Fatalf("expected XX to be skipped, err = %v", results[2].Err)
	}
	if got := cidrs(results[0].Blocks); len(got) != 1 || got[0] != "10.0.0.0/25" {
		t.Fatalf("DE blocks = %v", got)
	}
	if results[0].Addresses != 128 || results[1].Addresses != 128 {
		t.Fatalf("addresses = %d/%d", results[0].Addresses, results[1].Addresses)
	}
}
