package geodata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// DefaultDatasetURL serves the free geoip2-ipv4 CSV snapshot.
const DefaultDatasetURL = "https://datahub.io/core/geoip2-ipv4/r/geoip2-ipv4.csv"

const downloadTimeout = 60 * time.Second

// EnsureDataset downloads the geo dataset to path when it is not
// already present. The file is written through a temp name and
// renamed so a failed download never leaves a truncated dataset.
func EnsureDataset(ctx context.Context, path string, url string) error {
	if _, err := os.Stat(path); err == nil {
		logutil.GetLogger(ctx).Debug("geo dataset already present", zap.String("path", path))
		return nil
	}
	if url == "" {
		url = DefaultDatasetURL
	}
	logutil.GetLogger(ctx).Info("downloading geo dataset",
		zap.String("url", url), zap.String("path", path))

	client := &http.Client{
		Timeout: downloadTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        4,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create dataset request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download geo dataset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geo dataset download returned %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".geodata-*")
	if err != nil {
		return fmt.Errorf("create dataset temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write geo dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close geo dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move geo dataset into place: %w", err)
	}
	return nil
}
