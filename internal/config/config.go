package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

// Config is the root runtime configuration.
type Config struct {
	Sources   []string         `json:"sources" yaml:"sources"`
	Countries []Country        `json:"countries" yaml:"countries"`
	Geo       GeoConfig        `json:"geo" yaml:"geo"`
	Output    OutputConfig     `json:"output" yaml:"output"`
	Workers   int              `json:"workers" yaml:"workers"`
	Resolver  ResolverConfig   `json:"resolver" yaml:"resolver"`
	Log       logger.LogConfig `json:"log" yaml:"log"`
	Pprof     PprofConfig      `json:"pprof" yaml:"pprof"`
}

// Country selects one classification target.
type Country struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

type GeoConfig struct {
	Dataset     string `json:"dataset" yaml:"dataset"`
	DownloadURL string `json:"download_url" yaml:"download_url"`
}

type OutputConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// ResolverConfig enables hostname resolution for sources that request
// it. An empty upstream leaves resolution off.
type ResolverConfig struct {
	Upstream string `json:"upstream" yaml:"upstream"`
}

type PprofConfig struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Bind   string `json:"bind" yaml:"bind"`
}

const (
	defaultDataset   = "/data/geoip/geoip2-ipv4.csv"
	defaultOutputDir = "/data/output"
)

// Load reads the optional configuration file from disk and overlays
// the environment on top of it. The environment follows the
// established deployment contract (LIST_N, COUNTRY_ISO_CODE_N and
// friends) and wins over the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(cfg)
	if cfg.Geo.Dataset == "" {
		cfg.Geo.Dataset = defaultDataset
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaultOutputDir
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("config: no list sources configured")
	}
	if len(cfg.Countries) == 0 {
		return nil, fmt.Errorf("config: no countries configured")
	}
	return cfg, nil
}
