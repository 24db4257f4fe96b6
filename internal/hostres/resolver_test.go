package hostres

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/miekg/dns"
)

type stubExchanger struct {
	answers map[string][]string
	err     error
	calls   int
}

func (s *stubExchanger) Exchange(ctx context.Context, req *dns.Msg, addr string) (*dns.Msg, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	name := req.Question[0].Name
	resp := new(dns.Msg)
	resp.SetReply(req)
	for _, ip := range s.answers[name] {
		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
			A:   net.ParseIP(ip),
		})
	}
	return resp, nil
}

func TestLookupA(t *testing.T) {
	stub := &stubExchanger{answers: map[string][]string{
		"evil.example.com.": {"10.0.0.1", "10.0.0.2"},
	}}
	r, err := New("1.1.1.1", WithExchanger(stub))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	addrs, err := r.LookupA(context.Background(), "Evil.Example.COM.")
	if err != nil {
		t.Fatalf("LookupA error: %v", err)
	}
	if len(addrs) != 2 || addrs[0] != 0x0a000001 || addrs[1] != 0x0a000002 {
		t.Fatalf("addrs = %#x", addrs)
	}
}

func TestLookupACached(t *testing.T) {
	stub := &stubExchanger{answers: map[string][]string{"host.example.org.": {"1.2.3.4"}}}
	r, err := New("1.1.1.1:5353", WithExchanger(stub))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := r.LookupA(context.Background(), "host.example.org"); err != nil {
			t.Fatalf("LookupA error: %v", err)
		}
	}
	if stub.calls != 1 {
		t.Fatalf("exchanger called %d times, want 1", stub.calls)
	}
}

func TestLookupAError(t *testing.T) {
	stub := &stubExchanger{err: errors.New("timeout")}
	r, err := New("1.1.1.1", WithExchanger(stub))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := r.LookupA(context.Background(), "dead.example.net"); err == nil {
		t.Fatal("expected lookup error")
	}
	// failure is cached, the wire is not retried within a run
	_, _ = r.LookupA(context.Background(), "dead.example.net")
	if stub.calls != 1 {
		t.Fatalf("exchanger called %d times, want 1", stub.calls)
	}
}

func TestIsHostname(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"evil.example.com", true},
		{"sub-domain.example.org.", true},
		{"xn--e1afmkfd.xn--p1ai", true},
		{"1.2.3.4", false},
		{"1.2.3.999", false},
		{"localhost", false},
		{"", false},
		{"# comment", false},
		{"http://example.com/path", false},
		{"-bad.example.com", false},
		{"bad-.example.com", false},
		{"a..b", false},
	}
	for _, tt := range tests {
		if got := IsHostname(tt.in); got != tt.want {
			t.Errorf("IsHostname(%q) = %t, want %t", tt.in, got, tt.want)
		}
	}
}
