package config

import (
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	listPattern    = regexp.MustCompile(`^LIST_(\d+)=(.*)$`)
	countryPattern = regexp.MustCompile(`^COUNTRY_ISO_CODE(_)?(\d*)=(.*)$`)
)

// LoadDotEnv reads a .env file into the process environment when one
// exists. Variables already set in the environment keep their values.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
}

// applyEnv overlays the deployment environment onto cfg. Sources and
// countries found in the environment replace the file-configured sets
// entirely; scalars override only when set.
func applyEnv(cfg *Config) {
	environ := os.Environ()

	if sources := envSources(environ); len(sources) > 0 {
		cfg.Sources = sources
	}
	if countries := envCountries(environ); len(countries) > 0 {
		cfg.Countries = countries
	}
	if v := os.Getenv("GEOIP_CSV_PATH"); v != "" {
		cfg.Geo.Dataset = v
	}
	if v := os.Getenv("GEOIP_DOWNLOAD_URL"); v != "" {
		cfg.Geo.DownloadURL = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("RESOLVER_UPSTREAM"); v != "" {
		cfg.Resolver.Upstream = v
	}
	if v := os.Getenv("NUM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
}

func envSources(environ []string) []string {
	type entry struct {
		num  int
		spec string
	}
	var found []entry
	for _, kv := range environ {
		m := listPattern.FindStringSubmatch(kv)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		spec := strings.TrimSpace(m[2])
		if spec == "" {
			continue
		}
		found = append(found, entry{num: num, spec: spec})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].num < found[j].num })
	out := make([]string, 0, len(found))
	for _, e := range found {
		out = append(out, e.spec)
	}
	return out
}

// envCountries detects every COUNTRY_ISO_CODE[_N] variable, keeping
// the historical ordering: the legacy unnumbered form first, then by
// number. COUNTRY_ISO_CODE_ with no number is malformed and skipped.
func envCountries(environ []string) []Country {
	type entry struct {
		legacy  bool
		num     int
		country Country
	}
	var found []entry
	for _, kv := range environ {
		m := countryPattern.FindStringSubmatch(kv)
		if m == nil {
			continue
		}
		hasUnderscore, numPart := m[1] == "_", m[2]
		code := strings.ToUpper(strings.TrimSpace(m[3]))
		if code == "" {
			continue
		}
		var (
			legacy  bool
			num     int
			nameVar string
		)
		switch {
		case hasUnderscore && numPart != "":
			num, _ = strconv.Atoi(numPart)
			nameVar = "COUNTRY_NAME_" + numPart
		case !hasUnderscore && numPart == "":
			legacy = true
			nameVar = "COUNTRY_NAME"
		default:
			continue
		}
		found = append(found, entry{
			legacy: legacy,
			num:    num,
			country: Country{
				Code: code,
				Name: strings.TrimSpace(os.Getenv(nameVar)),
			},
		})
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].legacy != found[j].legacy {
			return found[i].legacy
		}
		return found[i].num < found[j].num
	})
	out := make([]Country, 0, len(found))
	for _, e := range found {
		out = append(out, e.country)
	}
	return out
}
