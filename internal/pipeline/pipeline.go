package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/classify"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/config"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/geodata"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/hostres"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/ipset"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/report"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/source"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/stats"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyAggregate is the run-level failure for an input that
// produced no valid networks: there is nothing to classify and no
// output files are written.
var ErrEmptyAggregate = errors.New("pipeline: no valid networks parsed from any source")

// ErrAllCountriesFailed means classification could not produce a
// single per-country result.
var ErrAllCountriesFailed = errors.New("pipeline: every configured country failed")

const fetchConcurrency = 4

// Pipeline runs one full aggregation pass: fetch, parse, merge,
// decompose, classify per country, combine, report.
type Pipeline struct {
	cfg       *config.Config
	sources   []source.IListSource
	resolver  *hostres.Resolver
	collector *stats.Collector
	writer    *report.Writer
}

// Option overrides pipeline collaborators, used by tests.
type Option func(*Pipeline)

// WithResolver replaces the hostname resolver.
func WithResolver(r *hostres.Resolver) Option {
	return func(p *Pipeline) {
		p.resolver = r
	}
}

func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	srcs, err := source.MakeSources(cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}
	p := &Pipeline{
		cfg:       cfg,
		sources:   srcs,
		collector: stats.NewCollector(),
		writer:    report.NewWriter(cfg.Output.Dir),
	}
	if cfg.Resolver.Upstream != "" {
		r, err := hostres.New(cfg.Resolver.Upstream)
		if err != nil {
			return nil, fmt.Errorf("build resolver: %w", err)
		}
		p.resolver = r
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes the pass and returns the final counters. Line-level
// and country-level failures never escalate; only an empty aggregate
// or a dataset that fails every country aborts the run.
func (p *Pipeline) Run(ctx context.Context) (stats.Snapshot, error) {
	fetched, err := p.fetch(ctx)
	if err != nil {
		return stats.Snapshot{}, err
	}
	blocks, err := p.aggregate(ctx, fetched)
	if err != nil {
		return stats.Snapshot{}, err
	}

	table, err := p.loadTable(ctx)
	if err != nil {
		return stats.Snapshot{}, err
	}
	codes := make([]string, 0, len(p.cfg.Countries))
	for _, c := range p.cfg.Countries {
		codes = append(codes, c.Code)
	}
	results := classify.Run(ctx, table, codes, blocks, p.cfg.Workers)

	if err := p.write(ctx, blocks, results); err != nil {
		return stats.Snapshot{}, err
	}
	return p.collector.Snapshot(), nil
}

type fetchResult struct {
	src   source.IListSource
	lines []string
}

// fetch pulls every source concurrently. A failed source is logged
// and dropped, the rest of the run continues.
func (p *Pipeline) fetch(ctx context.Context) ([]fetchResult, error) {
	results := make([]fetchResult, len(p.sources))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchConcurrency)
	for i, src := range p.sources {
		i, src := i, src
		p.collector.AddSource(src.String())
		eg.Go(func() error {
			lines, err := src.Fetch(ctx)
			if err != nil {
				logutil.GetLogger(ctx).Warn("source fetch failed, skipping",
					zap.String("source", src.String()), zap.Error(err))
				return nil
			}
			logutil.GetLogger(ctx).Info("source fetched",
				zap.String("source", src.String()), zap.Int("lines", len(lines)))
			results[i] = fetchResult{src: src, lines: lines}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// aggregate runs the sequential pass: parse every line, merge the
// intervals and decompose the merged spans back into CIDR blocks.
func (p *Pipeline) aggregate(ctx context.Context, fetched []fetchResult) ([]ipset.Network, error) {
	var intervals []ipset.Interval
	for _, fr := range fetched {
		if fr.src == nil {
			continue
		}
		resolve := p.resolver != nil && fr.src.Params().Resolve
		for _, line := range fr.lines {
			p.collector.Line()
			network, err := ipset.ParseLine(line)
			if err == nil {
				p.collector.Parsed()
				intervals = append(intervals, network.Interval())
				continue
			}
			if resolve && hostres.IsHostname(line) {
				addrs, lookupErr := p.resolver.LookupA(ctx, line)
				if lookupErr == nil && len(addrs) > 0 {
					for _, addr := range addrs {
						intervals = append(intervals, ipset.Network{Addr: addr, Prefix: 32}.Interval())
					}
					p.collector.Resolved(1)
					continue
				}
			}
			p.collector.Invalid()
			logutil.GetLogger(ctx).Debug("invalid entry skipped",
				zap.String("line", line), zap.String("source", fr.src.String()))
		}
	}

	merged := ipset.Merge(intervals)
	if len(merged) == 0 {
		return nil, ErrEmptyAggregate
	}
	blocks := ipset.DecomposeAll(merged)
	var addresses uint64
	for _, iv := range merged {
		addresses += iv.Size()
	}
	p.collector.Merged(len(blocks), addresses)
	logutil.GetLogger(ctx).Info("aggregate built",
		zap.Int("intervals", len(intervals)),
		zap.Int("blocks", len(blocks)),
		zap.Uint64("addresses", addresses))
	return blocks, nil
}

func (p *Pipeline) loadTable(ctx context.Context) (*geodata.Table, error) {
	path := p.cfg.Geo.Dataset
	if strings.ToLower(filepath.Ext(path)) != ".mmdb" {
		if err := geodata.EnsureDataset(ctx, path, p.cfg.Geo.DownloadURL); err != nil {
			return nil, err
		}
	}
	return geodata.Load(ctx, path)
}

// write emits the aggregate, the per-country files, the combined file
// and the stats report. Nothing is written before this point, so an
// empty aggregate leaves the output directory untouched.
func (p *Pipeline) write(ctx context.Context, blocks []ipset.Network, results []*classify.Result) error {
	succeeded := 0
	for i, r := range results {
		cs := stats.CountryStats{
			Code:              r.Code,
			Name:              p.countryName(i, r),
			NetworksFound:     r.NetworksFound,
			NetworksOptimized: r.NetworksOptimized,
			BlocksMatched:     len(r.Blocks),
			AddressesMatched:  r.Addresses,
		}
		if r.Failed() {
			cs.Skipped = true
			cs.Reason = r.Err.Error()
			p.collector.Country(cs)
			continue
		}
		cs.OutputFile = report.CountryFileName(r.Code)
		if err := p.writer.WriteBlocklist(cs.OutputFile, r.Blocks); err != nil {
			return err
		}
		p.collector.Country(cs)
		succeeded++
	}
	if succeeded == 0 {
		return fmt.Errorf("%w (%d configured)", ErrAllCountriesFailed, len(results))
	}

	if err := p.writer.WriteBlocklist(report.AggregateFileName, blocks); err != nil {
		return err
	}

	codes := make([]string, 0, len(p.cfg.Countries))
	for _, c := range p.cfg.Countries {
		codes = append(codes, c.Code)
	}
	combined := classify.Combine(results)
	combinedFile := report.CombinedFileName(codes)
	if err := p.writer.WriteBlocklist(combinedFile, combined.Blocks); err != nil {
		return err
	}
	p.collector.Combined(combinedFile, len(combined.Blocks), combined.Addresses)

	if err := p.writer.WriteStats(p.collector.Snapshot()); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("outputs written",
		zap.String("dir", p.cfg.Output.Dir),
		zap.Int("countries", succeeded),
		zap.Int("combined_blocks", len(combined.Blocks)))
	return nil
}

// countryName prefers the configured display name, falling back to
// what the dataset calls the country.
func (p *Pipeline) countryName(idx int, r *classify.Result) string {
	if idx < len(p.cfg.Countries) && p.cfg.Countries[idx].Name != "" {
		return p.cfg.Countries[idx].Name
	}
	return r.Name
}
