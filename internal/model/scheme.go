package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Scheme is the protocol spoken to a proxy.
type Scheme int

const (
	SchemeHTTP Scheme = iota + 1
	SchemeHTTPS
	SchemeSOCKS4
	SchemeSOCKS5
)

// Schemes lists every supported scheme.
var Schemes = []Scheme{SchemeHTTP, SchemeHTTPS, SchemeSOCKS4, SchemeSOCKS5}

// ParseScheme maps text to a Scheme. Names are case-insensitive; the numeric
// codes 4 and 5 select SOCKS4 and SOCKS5. Anything else is HTTP.
func ParseScheme(s string) Scheme {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		switch n {
		case 4:
			return SchemeSOCKS4
		case 5:
			return SchemeSOCKS5
		default:
			return SchemeHTTP
		}
	}
	switch strings.ToLower(s) {
	case "https":
		return SchemeHTTPS
	case "socks4":
		return SchemeSOCKS4
	case "socks5":
		return SchemeSOCKS5
	default:
		return SchemeHTTP
	}
}

// String returns the lower-case scheme name used in proxy URLs.
func (s Scheme) String() string {
	switch s {
	case SchemeHTTP:
		return "http"
	case SchemeHTTPS:
		return "https"
	case SchemeSOCKS4:
		return "socks4"
	case SchemeSOCKS5:
		return "socks5"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// Valid reports whether s is one of the four known schemes.
func (s Scheme) Valid() bool {
	return s >= SchemeHTTP && s <= SchemeSOCKS5
}

// IsSOCKS reports whether s is SOCKS4 or SOCKS5.
func (s Scheme) IsSOCKS() bool {
	return s == SchemeSOCKS4 || s == SchemeSOCKS5
}

func (s Scheme) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scheme) UnmarshalText(b []byte) error {
	*s = ParseScheme(string(b))
	return nil
}
