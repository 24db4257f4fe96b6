package ipset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEntry marks a line that is neither a bare IPv4 address nor
// an IPv4 CIDR. Callers skip and count these lines, they never abort a
// run.
var ErrInvalidEntry = errors.New("ipset: invalid entry")

// Network is a validated IPv4 network. A bare address parses as /32.
// The address is kept as given; alignment to the prefix happens when
// the network is converted to an interval.
type Network struct {
	Addr   uint32
	Prefix uint8
}

// ParseLine validates a single input line as an IPv4 network.
func ParseLine(line string) (Network, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return Network{}, fmt.Errorf("%w: empty line", ErrInvalidEntry)
	}
	addrPart := s
	prefix := uint8(32)
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		addrPart = s[:idx]
		p, ok := parseDecimal(s[idx+1:], 32)
		if !ok {
			return Network{}, fmt.Errorf("%w: bad prefix in %q", ErrInvalidEntry, s)
		}
		prefix = uint8(p)
	}
	addr, err := parseDottedQuad(addrPart)
	if err != nil {
		return Network{}, fmt.Errorf("%w: %q", ErrInvalidEntry, s)
	}
	return Network{Addr: addr, Prefix: prefix}, nil
}

func parseDottedQuad(s string) (uint32, error) {
	var addr uint32
	rest := s
	for i := 0; i < 4; i++ {
		part := rest
		if i < 3 {
			dot := strings.IndexByte(rest, '.')
			if dot < 0 {
				return 0, fmt.Errorf("expected 4 octets in %q", s)
			}
			part, rest = rest[:dot], rest[dot+1:]
		}
		val, ok := parseDecimal(part, 255)
		if !ok {
			return 0, fmt.Errorf("bad octet %q", part)
		}
		addr = addr<<8 | val
	}
	return addr, nil
}

// parseDecimal accepts plain decimal numbers up to limit. Leading
// zeros are rejected so octal-looking octets do not slip through.
func parseDecimal(s string, limit uint32) (uint32, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	var val uint32
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		val = val*10 + uint32(c-'0')
	}
	if val > limit {
		return 0, false
	}
	return val, true
}

// String renders the canonical CIDR text form, prefix always included.
func (n Network) String() string {
	return fmt.Sprintf("%d.%d.%d.%d/%d",
		n.Addr>>24, n.Addr>>16&0xff, n.Addr>>8&0xff, n.Addr&0xff, n.Prefix)
}
