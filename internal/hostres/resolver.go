package hostres

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/miekg/dns"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	defaultCacheSize = 4096
	defaultTimeout   = 5 * time.Second
)

// IExchanger performs one DNS exchange. Split out so tests can stub
// the wire.
type IExchanger interface {
	Exchange(ctx context.Context, req *dns.Msg, addr string) (*dns.Msg, error)
}

type clientExchanger struct {
	client *dns.Client
}

func (c *clientExchanger) Exchange(ctx context.Context, req *dns.Msg, addr string) (*dns.Msg, error) {
	resp, _, err := c.client.ExchangeContext(ctx, req, addr)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("no response from %s", addr)
	}
	return resp, nil
}

// Resolver turns hostname entries found in blocklists into IPv4
// addresses. Lookups are cached per run; blocklists repeat hostnames
// across sources constantly.
type Resolver struct {
	addr  string
	exch  IExchanger
	cache *lru.Cache[string, []uint32]
}

// Option configures the resolver.
type Option func(*Resolver)

// WithExchanger replaces the wire client, used by tests.
func WithExchanger(e IExchanger) Option {
	return func(r *Resolver) {
		r.exch = e
	}
}

// New creates a resolver against one upstream ("1.1.1.1" or
// "10.0.0.1:5353"; port 53 is assumed when missing).
func New(upstream string, opts ...Option) (*Resolver, error) {
	addr := strings.TrimSpace(upstream)
	if addr == "" {
		return nil, fmt.Errorf("hostres: upstream required")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "53")
	}
	cache, err := lru.New[string, []uint32](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("hostres: init cache: %w", err)
	}
	r := &Resolver{
		addr:  addr,
		exch:  &clientExchanger{client: &dns.Client{Net: "udp", Timeout: defaultTimeout}},
		cache: cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// LookupA resolves a hostname to its A records as host-order uint32
// addresses. Failed and empty lookups are cached too so a dead name
// costs one query per run.
func (r *Resolver) LookupA(ctx context.Context, host string) ([]uint32, error) {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if addrs, ok := r.cache.Get(key); ok {
		return addrs, nil
	}
	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(key), dns.TypeA)
	resp, err := r.exch.Exchange(ctx, req, r.addr)
	if err != nil {
		logutil.GetLogger(ctx).Debug("hostname lookup failed",
			zap.String("host", key), zap.Error(err))
		r.cache.Add(key, nil)
		return nil, err
	}
	var addrs []uint32
	for _, rr := range resp.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		v4 := a.A.To4()
		if v4 == nil {
			continue
		}
		addrs = append(addrs, uint32(v4[0])<<24|uint32(v4[1])<<16|uint32(v4[2])<<8|uint32(v4[3]))
	}
	r.cache.Add(key, addrs)
	return addrs, nil
}

// IsHostname reports whether a rejected line looks like a resolvable
// DNS name rather than arbitrary noise.
func IsHostname(s string) bool {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if len(s) == 0 || len(s) > 253 || strings.ContainsAny(s, " \t/\\:@#") {
		return false
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if c != '-' && !isAlnum(c) {
				return false
			}
		}
	}
	// an all-numeric final label would be a malformed address, not a name
	tld := labels[len(labels)-1]
	for i := 0; i < len(tld); i++ {
		if tld[i] < '0' || tld[i] > '9' {
			return true
		}
	}
	return false
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
