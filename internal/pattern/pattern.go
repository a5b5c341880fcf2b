// Package pattern holds the regular expressions used to recognise proxies in
// free-form text, and typed extractors over them.
package pattern

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Port accepts decimal strings in [0, 65535].
	Port = regexp.MustCompile(`^(?:6553[0-5]|655[0-2][0-9]|65[0-4][0-9]{2}|6[0-4][0-9]{3}|[1-5][0-9]{4}|[0-9]{1,4})$`)

	// Octet accepts a single IPv4 octet, 0-255.
	Octet = regexp.MustCompile(`^(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)

	// IPPort is the loose grammar: a line holding exactly one a.b.c.d:port pair.
	IPPort = regexp.MustCompile(`^((?:\d{1,3}\.){3}\d{1,3}):(\d{1,5})$`)

	// Hostname matches word.tld shaped host tokens.
	Hostname = regexp.MustCompile(`^(?:[\w-]+\.)+[a-zA-Z]{2,}$`)

	// Proxy is the general grammar:
	//
	//	[scheme://]host[:port][:user:pass]
	//
	// The scheme may be wrapped in brackets or followed by "|" or "]" instead
	// of "://". IPv6 hosts are bracketed. The user may not contain ":".
	// Matching is case-insensitive and line oriented.
	Proxy = regexp.MustCompile(`(?im)^\[?[ \t]*` +
		`(?:(?P<scheme>socks[45]|https?)(?:[\]|][ \t]*(?:\]|\||://)?|[ \t]*(?:\]|\||://)|[ \t])[ \t]*)?` +
		`(?P<host>\[[0-9a-f:.]+\]|(?:\d+\.){3}\d+|(?:[\w-]+\.)+[a-z]{2,})` +
		`(?::(?P<port>\d*))?` +
		`(?::(?P<user>[^:\r\n]+):(?P<pass>.+))?$`)
)

var (
	schemeIdx = Proxy.SubexpIndex("scheme")
	hostIdx   = Proxy.SubexpIndex("host")
	portIdx   = Proxy.SubexpIndex("port")
	userIdx   = Proxy.SubexpIndex("user")
	passIdx   = Proxy.SubexpIndex("pass")
)

// IPPortMatch is the result of the loose grammar.
type IPPortMatch struct {
	Host string
	Port int
}

// ProxyMatch is the result of the general grammar. Empty fields were absent
// from the input. Host carries no brackets.
type ProxyMatch struct {
	Scheme   string
	Host     string
	Port     string
	User     string
	Password string
}

// IsPort reports whether s is a port number in [0, 65535].
func IsPort(s string) bool { return Port.MatchString(s) }

// IsOctet reports whether s is a single IPv4 octet.
func IsOctet(s string) bool { return Octet.MatchString(s) }

// IsHostname reports whether s looks like a DNS name rather than an IP literal.
func IsHostname(s string) bool { return Hostname.MatchString(s) }

// MatchIPPort applies the loose grammar to line.
func MatchIPPort(line string) (IPPortMatch, bool) {
	m := IPPort.FindStringSubmatch(line)
	if m == nil {
		return IPPortMatch{}, false
	}
	port, err := strconv.Atoi(m[2])
	if err != nil {
		return IPPortMatch{}, false
	}
	return IPPortMatch{Host: m[1], Port: port}, true
}

// MatchProxy applies the general grammar to text and returns the first
// matching line.
func MatchProxy(text string) (ProxyMatch, bool) {
	m := Proxy.FindStringSubmatch(text)
	if m == nil {
		return ProxyMatch{}, false
	}
	return ProxyMatch{
		Scheme:   m[schemeIdx],
		Host:     strings.TrimSuffix(strings.TrimPrefix(m[hostIdx], "["), "]"),
		Port:     m[portIdx],
		User:     m[userIdx],
		Password: m[passIdx],
	}, true
}
