package tunnel

import (
	"context"
	"net"
	"net/url"
	"strconv"

	"golang.org/x/net/proxy"
	"h12.io/socks"
)

// socks4Dialer adapts h12.io/socks to the x/net/proxy interfaces. h12.io
// dials the proxy on its own, so the forward dialer is not used.
type socks4Dialer struct {
	dial func(network, addr string) (net.Conn, error)
}

func newSOCKS4Dialer(u *url.URL, _ proxy.Dialer) (proxy.Dialer, error) {
	uri := *u
	if uri.Port() == "" {
		uri.Host = net.JoinHostPort(uri.Hostname(), strconv.Itoa(DefaultSOCKSPort))
	}
	return &socks4Dialer{dial: socks.Dial(uri.String())}, nil
}

func (d *socks4Dialer) Dial(network, addr string) (net.Conn, error) {
	return d.dial(network, addr)
}

func (d *socks4Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return dialContext(ctx, dialFunc(d.dial), network, addr)
}

type dialFunc func(network, addr string) (net.Conn, error)

func (f dialFunc) Dial(network, addr string) (net.Conn, error) { return f(network, addr) }
