package model

import (
	"cmp"
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/August26/proxyline/internal/pattern"
)

// Credentials is a username/password pair. It is only attached to a Proxy
// when both halves are non-empty.
type Credentials struct {
	User     string
	Password string
}

// Valid reports whether both the user and the password are set.
func (c Credentials) Valid() bool {
	return c.User != "" && c.Password != ""
}

// representable reports whether c survives the canonical
// host:port:user:password form.
func (c Credentials) representable() bool {
	return !strings.ContainsAny(c.User, ":\r\n") && !strings.ContainsAny(c.Password, "\r\n")
}

// Proxy is a validated, immutable proxy endpoint. The zero value is not a
// usable proxy; build one with New or Builder.Build.
type Proxy struct {
	addr    netip.Addr
	port    int
	scheme  Scheme
	auth    Credentials
	country string
}

// Key is the identity a Proxy is deduplicated by: the address, port, scheme
// and credentials taken together. Two proxies differing only in scheme or
// credentials are distinct entries.
type Key struct {
	Addr   netip.Addr
	Port   int
	Scheme Scheme
	Auth   Credentials
}

// HostResolver resolves hostnames. *net.Resolver satisfies it.
type HostResolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// CountryLookup maps an address to an ISO country code.
type CountryLookup interface {
	Country(ip netip.Addr) (string, bool)
}

// Builder constructs proxies. Hostnames are resolved through Resolver
// (net.DefaultResolver when nil) and country codes come from Countries (none
// when nil).
type Builder struct {
	Resolver  HostResolver
	Countries CountryLookup
}

// New builds a proxy with the default Builder.
func New(host string, port int, scheme Scheme, auth Credentials) (Proxy, error) {
	return Builder{}.Build(context.Background(), host, port, scheme, auth)
}

// Build validates host and port and returns the proxy. A host shaped like a
// DNS name is resolved to its first IPv4 address before validation. Port 0
// means the tunnel falls back to the scheme's default port. Credentials whose
// user contains ":" are rejected.
func (b Builder) Build(ctx context.Context, host string, port int, scheme Scheme, auth Credentials) (Proxy, error) {
	host = strings.TrimSpace(host)
	if pattern.IsHostname(host) {
		addr, err := b.resolve(ctx, host)
		if err != nil {
			return Proxy{}, &InvalidHostError{Host: host, Err: err}
		}
		host = addr.String()
	}

	if err := Validate(host, port); err != nil {
		return Proxy{}, err
	}
	addr, _ := netip.ParseAddr(host)

	if !scheme.Valid() {
		scheme = SchemeHTTP
	}
	if !auth.Valid() {
		auth = Credentials{}
	} else if !auth.representable() {
		return Proxy{}, &InvalidCredentialsError{User: auth.User}
	}

	p := Proxy{
		addr:   addr.Unmap(),
		port:   port,
		scheme: scheme,
		auth:   auth,
	}
	if b.Countries != nil {
		if cc, ok := b.Countries.Country(p.addr); ok {
			p.country = strings.ToUpper(cc)
		}
	}
	return p, nil
}

func (b Builder) resolve(ctx context.Context, host string) (netip.Addr, error) {
	var r HostResolver = net.DefaultResolver
	if b.Resolver != nil {
		r = b.Resolver
	}
	addrs, err := r.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("resolve %s: no addresses", host)
	}
	return addrs[0], nil
}

// Validate checks that host is an IP literal and port is in [0, 65535].
func Validate(host string, port int) error {
	if _, err := netip.ParseAddr(host); err != nil {
		return &InvalidHostError{Host: host}
	}
	if !pattern.IsPort(strconv.Itoa(port)) {
		return &InvalidPortError{Port: port}
	}
	return nil
}

func (p Proxy) Addr() netip.Addr { return p.addr }

func (p Proxy) Host() string { return p.addr.String() }

func (p Proxy) Port() int { return p.port }

func (p Proxy) Scheme() Scheme { return p.scheme }

// Credentials returns the proxy's credentials, if it has any.
func (p Proxy) Credentials() (Credentials, bool) {
	return p.auth, p.auth.Valid()
}

// Country returns the ISO country code of the proxy host, if it is known.
func (p Proxy) Country() (string, bool) {
	return p.country, p.country != ""
}

func (p Proxy) Key() Key {
	return Key{Addr: p.addr, Port: p.port, Scheme: p.scheme, Auth: p.auth}
}

// Equal reports whether p and o share the same Key.
func (p Proxy) Equal(o Proxy) bool { return p.Key() == o.Key() }

// IPPort returns "host:port", bracketing IPv6 hosts.
func (p Proxy) IPPort() string {
	return netip.AddrPortFrom(p.addr, uint16(p.port)).String()
}

// String returns the canonical form scheme://host:port[:user:password],
// with IPv6 hosts bracketed. The general grammar parses it back into an
// equal proxy.
func (p Proxy) String() string {
	s := p.scheme.String() + "://" + p.IPPort()
	if p.auth.Valid() {
		s += ":" + p.auth.User + ":" + p.auth.Password
	}
	return s
}

// URL returns the proxy as a URL suitable for http.Transport.Proxy. HTTPS
// proxies are reached with a plain CONNECT, so they share the http scheme.
func (p Proxy) URL() *url.URL {
	scheme := p.scheme.String()
	if p.scheme == SchemeHTTPS {
		scheme = SchemeHTTP.String()
	}
	u := &url.URL{Scheme: scheme, Host: p.IPPort()}
	if p.auth.Valid() {
		u.User = url.UserPassword(p.auth.User, p.auth.Password)
	}
	return u
}

// Compare orders proxies by address, port, scheme and credentials.
func Compare(a, b Proxy) int {
	if c := a.addr.Compare(b.addr); c != 0 {
		return c
	}
	if c := cmp.Compare(a.port, b.port); c != 0 {
		return c
	}
	if c := cmp.Compare(a.scheme, b.scheme); c != 0 {
		return c
	}
	if c := cmp.Compare(a.auth.User, b.auth.User); c != 0 {
		return c
	}
	return cmp.Compare(a.auth.Password, b.auth.Password)
}
