// Package geoip looks up the registered country of proxy addresses.
package geoip

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Reader answers country lookups from a MaxMind GeoIP2/GeoLite2 database.
type Reader struct {
	db *geoip2.Reader
}

// Open opens the mmdb file at path.
func Open(path string) (*Reader, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &Reader{db: db}, nil
}

// Country returns the ISO code of the country ip is registered to. A miss
// is not an error.
func (r *Reader) Country(ip netip.Addr) (string, bool) {
	if r == nil || r.db == nil || !ip.IsValid() {
		return "", false
	}
	rec, err := r.db.Country(ip.AsSlice())
	if err != nil || rec == nil {
		return "", false
	}
	if rec.RegisteredCountry.IsoCode == "" {
		return "", false
	}
	return rec.RegisteredCountry.IsoCode, true
}

func (r *Reader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Static is an in-memory table of address to country code.
type Static map[netip.Addr]string

func (s Static) Country(ip netip.Addr) (string, bool) {
	cc, ok := s[ip.Unmap()]
	if !ok || cc == "" {
		return "", false
	}
	return strings.ToUpper(cc), true
}
