package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

type fileSource struct {
	path   string
	params Params
}

func newFileSource(u *url.URL, params Params) (IListSource, error) {
	path := u.Path
	if u.Opaque != "" {
		path = u.Opaque
	}
	if path == "" {
		return nil, fmt.Errorf("file source requires a path")
	}
	return &fileSource{path: filepath.Clean(path), params: params}, nil
}

func (s *fileSource) String() string {
	return "file://" + s.path
}

func (s *fileSource) Params() Params {
	return s.params
}

func (s *fileSource) Fetch(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open list %s: %w", s.path, err)
	}
	defer f.Close()
	lines, err := scanLines(f)
	if err != nil {
		return nil, fmt.Errorf("read list %s: %w", s.path, err)
	}
	return lines, nil
}

func init() {
	Register("file", newFileSource)
}
