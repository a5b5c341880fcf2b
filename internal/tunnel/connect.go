package tunnel

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	httpdialer "github.com/mwitkow/go-http-dialer"
	"golang.org/x/net/proxy"
)

// connectDialer adapts go-http-dialer's CONNECT tunnel to the x/net/proxy
// interfaces. The proxy is reached with the forward dialer when it is a
// *net.Dialer and with a zero net.Dialer otherwise.
type connectDialer struct {
	tunnel *httpdialer.HttpTunnel
}

func newConnectDialer(u *url.URL, forward proxy.Dialer) (proxy.Dialer, error) {
	uri := url.URL{Scheme: "http", Host: u.Host}
	if u.Port() == "" {
		uri.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(DefaultHTTPPort))
	}

	nd, ok := forward.(*net.Dialer)
	if !ok || nd == nil {
		nd = &net.Dialer{}
	}

	if u.User == nil {
		return &connectDialer{tunnel: httpdialer.New(&uri, httpdialer.WithDialer(nd))}, nil
	}
	pass, _ := u.User.Password()
	t := httpdialer.New(&uri,
		httpdialer.WithDialer(nd),
		httpdialer.WithProxyAuth(httpdialer.AuthBasic(u.User.Username(), pass)),
	)
	return &connectDialer{tunnel: t}, nil
}

// Dial opens a CONNECT tunnel to addr. The proxy resolves addr, so every tcp
// variant is sent as plain tcp.
func (d *connectDialer) Dial(network, addr string) (net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("http connect: unsupported network %q", network)
	}
	return d.tunnel.Dial("tcp", addr)
}

func (d *connectDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return dialContext(ctx, dialFunc(d.Dial), network, addr)
}
