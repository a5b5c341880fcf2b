package geoip

import (
	"net/netip"
	"path/filepath"
	"testing"
)

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	if err == nil {
		t.Fatal("expected error for a missing database")
	}
}

func TestReader_NilIsMiss(t *testing.T) {
	var r *Reader
	if _, ok := r.Country(netip.MustParseAddr("8.8.8.8")); ok {
		t.Fatal("nil reader must miss")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestStatic(t *testing.T) {
	s := Static{netip.MustParseAddr("203.0.113.5"): "de"}
	if cc, ok := s.Country(netip.MustParseAddr("203.0.113.5")); !ok || cc != "DE" {
		t.Fatalf("Country() = %q, %v", cc, ok)
	}
	if cc, ok := s.Country(netip.MustParseAddr("::ffff:203.0.113.5")); !ok || cc != "DE" {
		t.Fatalf("mapped address: Country() = %q, %v", cc, ok)
	}
	if _, ok := s.Country(netip.MustParseAddr("203.0.113.6")); ok {
		t.Fatal("expected miss")
	}
}

func TestReader_Country(t *testing.T) {
	r, err := Open(filepath.Join("testdata", "GeoLite2-Country-Test.mmdb"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	tests := []struct {
		ip     string
		want   string
		wantOK bool
	}{
		{"81.2.69.142", "GB", true},
		{"89.160.20.120", "SE", true},
		// Country set but no registered country.
		{"67.43.156.1", "", false},
		{"8.8.8.8", "", false},
		{"::ffff:81.2.69.142", "GB", true},
		// IPv4-only database.
		{"2001:db8::1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			cc, ok := r.Country(netip.MustParseAddr(tt.ip))
			if cc != tt.want || ok != tt.wantOK {
				t.Fatalf("Country(%s) = %q, %v; want %q, %v", tt.ip, cc, ok, tt.want, tt.wantOK)
			}
		})
	}
}
