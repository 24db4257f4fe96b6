package geodata

import (
	"fmt"

	"github.com/MarcusHoltz/ipblocklist-geofiltered-aggregator/internal/ipset"
	"github.com/oschwald/maxminddb-golang"
)

type mmdbRecord struct {
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	RegisteredCountry struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"registered_country"`
}

// loadMMDB walks every network in a GeoLite2-Country style database.
// Only IPv4 entries are kept; registered_country fills in when the
// located country is absent.
func loadMMDB(path string, b *builder) error {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return fmt.Errorf("open geo dataset %s: %w", path, err)
	}
	defer reader.Close()

	networks := reader.Networks(maxminddb.SkipAliasedNetworks)
	for networks.Next() {
		var rec mmdbRecord
		subnet, err := networks.Network(&rec)
		if err != nil {
			return fmt.Errorf("decode geo dataset %s: %w", path, err)
		}
		v4 := subnet.IP.To4()
		if v4 == nil {
			continue
		}
		ones, bitlen := subnet.Mask.Size()
		if bitlen == 128 {
			// IPv4 networks inside an IPv6 tree carry a /96 offset
			if ones < 96 {
				continue
			}
			ones -= 96
		}
		code, name := rec.Country.ISOCode, rec.Country.Names["en"]
		if code == "" {
			code, name = rec.RegisteredCountry.ISOCode, rec.RegisteredCountry.Names["en"]
		}
		if code == "" {
			continue
		}
		addr := uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
		network := ipset.Network{Addr: addr, Prefix: uint8(ones)}
		b.add(code, name, network.Interval())
	}
	if err := networks.Err(); err != nil {
		return fmt.Errorf("walk geo dataset %s: %w", path, err)
	}
	return nil
}
