package classify

import (
	"context"
	"runtime"
	"strings"

	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/geodata"
	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/ipset"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run classifies the shared aggregate against every requested country.
// The aggregate and table are read-only so the per-country workers run
// without locking; each owns its private result and the only
// synchronization point is the final join. Results come back in
// request order.
func Run(ctx context.Context, table *geodata.Table, codes []string, blocks []ipset.Network, workers int) []*Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]*Result, len(codes))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, code := range codes {
		i, code := i, code
		eg.Go(func() error {
			country, err := table.Country(code)
			if err != nil {
				logutil.GetLogger(ctx).Warn("country skipped",
					zap.String("country", code), zap.Error(err))
				results[i] = &Result{Code: strings.ToUpper(strings.TrimSpace(code)), Err: err}
				return nil
			}
			res := Classify(country, blocks)
			logutil.GetLogger(ctx).Info("country classified",
				zap.String("country", res.Code),
				zap.Int("blocks", len(res.Blocks)),
				zap.Uint64("addresses", res.Addresses))
			results[i] = res
			return nil
		})
	}
	// per-country failures ride inside the results, workers never error
	_ = eg.Wait()
	return results
}
