package ipset

import (
	"slices"
	"testing"
)

func mustParse(t *testing.T, lines ...string) []Interval {
	t.Helper()
	out := make([]Interval, 0, len(lines))
	for _, l := range lines {
		n, err := ParseLine(l)
		if err != nil {
			t.Fatalf("parse %q: %v", l, err)
		}
		out = append(out, n.Interval())
	}
	return out
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{
			"adjacent halves collapse",
			[]Interval{{0x0a000000, 0x0a00007f}, {0x0a000080, 0x0a0000ff}},
			[]Interval{{0x0a000000, 0x0a0000ff}},
		},
		{
			"contained host absorbed",
			[]Interval{{0xc0a80105, 0xc0a80105}, {0xc0a80100, 0xc0a801ff}},
			[]Interval{{0xc0a80100, 0xc0a801ff}},
		},
		{
			"duplicates absorbed",
			[]Interval{{1, 5}, {1, 5}, {1, 5}},
			[]Interval{{1, 5}},
		},
		{
			"partial overlap extends",
			[]Interval{{1, 10}, {5, 20}},
			[]Interval{{1, 20}},
		},
		{
			"gap preserved",
			[]Interval{{1, 5}, {8, 10}},
			[]Interval{{1, 5}, {8, 10}},
		},
		{
			"unsorted input",
			[]Interval{{8, 10}, {1, 5}, {6, 7}},
			[]Interval{{1, 10}},
		},
		{
			"top of space",
			[]Interval{{0xfffffffe, 0xffffffff}, {0xfffffff0, 0xfffffffd}},
			[]Interval{{0xfffffff0, 0xffffffff}},
		},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		got := Merge(tt.in)
		if !slices.Equal(got, tt.want) {
			t.Errorf("%s: Merge(%v) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	in := mustParse(t, "10.0.0.0/25", "10.0.0.128/25", "192.168.1.5", "192.168.1.0/24", "172.16.0.0/12")
	once := Merge(in)
	twice := Merge(once)
	if !slices.Equal(once, twice) {
		t.Fatalf("merge not idempotent: %v vs %v", once, twice)
	}
}

func TestMergeCoverage(t *testing.T) {
	in := mustParse(t, "10.0.0.0/25", "10.0.0.128/25", "10.0.0.64/26", "10.0.1.0/24")
	merged := Merge(in)

	covered := func(ivs []Interval, addr uint32) bool {
		for _, iv := range ivs {
			if addr >= iv.Start && addr <= iv.End {
				return true
			}
		}
		return false
	}
	for addr := uint32(0x0a000000 - 2); addr <= 0x0a000202; addr++ {
		if covered(in, addr) != covered(merged, addr) {
			t.Fatalf("address %#x coverage changed by merge", addr)
		}
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	a := mustParse(t, "10.0.0.0/25", "192.168.1.0/24", "10.0.0.128/25")
	b := mustParse(t, "192.168.1.0/24", "10.0.0.128/25", "10.0.0.0/25")
	if !slices.Equal(Merge(a), Merge(b)) {
		t.Fatal("merge result depends on input order")
	}
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want Interval
		ok   bool
	}{
		{"full overlap", Interval{0, 10}, Interval{2, 5}, Interval{2, 5}, true},
		{"partial", Interval{0, 10}, Interval{5, 20}, Interval{5, 10}, true},
		{"touching point", Interval{0, 5}, Interval{5, 9}, Interval{5, 5}, true},
		{"disjoint", Interval{0, 4}, Interval{6, 9}, Interval{}, false},
	}
	for _, tt := range tests {
		got, ok := Intersect(tt.a, tt.b)
		if ok != tt.ok || got != tt.want {
			t.Errorf("%s: Intersect(%v, %v) = %v, %t", tt.name, tt.a, tt.b, got, ok)
		}
	}
}
