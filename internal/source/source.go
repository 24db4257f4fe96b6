package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gorilla/schema"
)

// Params carries per-source options. They ride in the URL fragment so
// the query string reaches the remote server untouched:
//
//	https://example.org/list.txt#timeout=60&resolve=1
type Params struct {
	Timeout int  `schema:"timeout"` // seconds, 0 means default
	Resolve bool `schema:"resolve"` // resolve hostname lines via DNS
}

// IListSource yields the raw lines of one blocklist. Lines are
// trimmed and blank lines dropped; all other validation belongs to
// the entry parser downstream.
type IListSource interface {
	String() string
	Params() Params
	Fetch(ctx context.Context) ([]string, error)
}

type Factory func(u *url.URL, params Params) (IListSource, error)

var m = make(map[string]Factory)

func Register(scheme string, fac Factory) {
	m[scheme] = fac
}

// MakeSource turns a source spec string into a fetchable source.
// Specs without a scheme are treated as local files.
func MakeSource(spec string) (IListSource, error) {
	u, err := url.Parse(strings.TrimSpace(spec))
	if err != nil {
		return nil, fmt.Errorf("parse source spec %q: %w", spec, err)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "file"
	}
	fac, ok := m[scheme]
	if !ok {
		return nil, fmt.Errorf("no source type found for scheme %q (spec=%s)", scheme, spec)
	}
	params, err := decodeParams(u.Fragment)
	if err != nil {
		return nil, fmt.Errorf("decode source params %q: %w", spec, err)
	}
	u.Fragment = ""
	return fac(u, params)
}

func MakeSources(specs []string) ([]IListSource, error) {
	rs := make([]IListSource, 0, len(specs))
	for _, item := range specs {
		s, err := MakeSource(item)
		if err != nil {
			return nil, err
		}
		rs = append(rs, s)
	}
	return rs, nil
}

func decodeParams(fragment string) (Params, error) {
	p := Params{}
	if fragment == "" {
		return p, nil
	}
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return p, err
	}
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	if err := d.Decode(&p, values); err != nil {
		return p, err
	}
	return p, nil
}

// scanLines reads trimmed, non-blank lines. Comment lines pass
// through untouched so the parser can count them as rejected.
func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
