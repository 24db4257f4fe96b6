package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxListBytes        = 64 << 20
)

type httpSource struct {
	endpoint string
	params   Params
	client   *http.Client
}

func newHTTPSource(u *url.URL, params Params) (IListSource, error) {
	timeout := defaultFetchTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxConnsPerHost:     4,
			MaxIdleConns:        4,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
	return &httpSource{endpoint: u.String(), params: params, client: client}, nil
}

func (s *httpSource) String() string {
	return s.endpoint
}

func (s *httpSource) Params() Params {
	return s.params
}

func (s *httpSource) Fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create list request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch list %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("list %s returned %d: %s", s.endpoint, resp.StatusCode, string(body))
	}
	lines, err := scanLines(io.LimitReader(resp.Body, maxListBytes))
	if err != nil {
		return nil, fmt.Errorf("read list %s: %w", s.endpoint, err)
	}
	return lines, nil
}

func init() {
	Register("http", newHTTPSource)
	Register("https", newHTTPSource)
}
