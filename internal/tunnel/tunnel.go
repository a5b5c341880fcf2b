// Package tunnel opens connections routed through a proxy. The handshakes
// themselves are done by golang.org/x/net/proxy (SOCKS5), h12.io/socks
// (SOCKS4) and github.com/mwitkow/go-http-dialer (HTTP CONNECT), the last two
// registered into the x/net/proxy scheme registry; this package only
// configures them.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/August26/proxyline/internal/model"
)

// Ports dialed when a proxy carries port 0.
const (
	DefaultSOCKSPort = 1080
	DefaultHTTPPort  = 8080
)

func init() {
	proxy.RegisterDialerType("http", newConnectDialer)
	proxy.RegisterDialerType("socks4", newSOCKS4Dialer)
}

// Opener configures tunnels.
type Opener struct {
	// Forward dials the proxy itself. Defaults to a net.Dialer.
	Forward proxy.Dialer
	// Timeout bounds reaching the proxy. Zero means only the context given
	// to DialContext applies, except for SOCKS4 which always carries a
	// timeout (model.DefaultTimeout when unset).
	Timeout time.Duration
}

// Tunnel is a dialer whose connections all pass through one proxy.
type Tunnel struct {
	proxy   model.Proxy
	network string
	dialer  proxy.Dialer
}

// Open opens a tunnel through p with a default Opener.
func Open(p model.Proxy, network string) (*Tunnel, error) {
	return Opener{}.Open(p, network)
}

// Open configures a tunnel through p. network is the default network
// ("tcp", "tcp4" or "tcp6") used by Connect.
func (o Opener) Open(p model.Proxy, network string) (*Tunnel, error) {
	if network == "" {
		network = "tcp"
	}
	u, err := o.proxyURL(p)
	if err != nil {
		return nil, err
	}

	forward := o.Forward
	if forward == nil {
		forward = &net.Dialer{
			Timeout:   o.Timeout,
			KeepAlive: 30 * time.Second,
		}
	}

	d, err := proxy.FromURL(u, forward)
	if err != nil {
		return nil, fmt.Errorf("configure %s tunnel: %w", p.Scheme(), err)
	}
	return &Tunnel{proxy: p, network: network, dialer: d}, nil
}

// Transport returns an *http.Transport that reaches every origin through p.
func (o Opener) Transport(p model.Proxy) (*http.Transport, error) {
	t, err := o.Open(p, "tcp")
	if err != nil {
		return nil, err
	}
	return &http.Transport{
		DialContext:           t.DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}, nil
}

// Proxy returns the proxy the tunnel goes through.
func (t *Tunnel) Proxy() model.Proxy { return t.proxy }

// Connect dials addr through the proxy on the tunnel's network.
func (t *Tunnel) Connect(ctx context.Context, addr string) (net.Conn, error) {
	return t.DialContext(ctx, t.network, addr)
}

// Dial implements proxy.Dialer.
func (t *Tunnel) Dial(network, addr string) (net.Conn, error) {
	return t.DialContext(context.Background(), network, addr)
}

// DialContext implements proxy.ContextDialer.
func (t *Tunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return dialContext(ctx, t.dialer, network, addr)
}

// dialerScheme maps a proxy scheme onto the x/net/proxy registry. HTTPS
// proxies are spoken to with a plain CONNECT, like HTTP ones.
func dialerScheme(s model.Scheme) (string, error) {
	switch s {
	case model.SchemeHTTP, model.SchemeHTTPS:
		return "http", nil
	case model.SchemeSOCKS4:
		return "socks4", nil
	case model.SchemeSOCKS5:
		return "socks5", nil
	default:
		return "", fmt.Errorf("unsupported proxy scheme %v", s)
	}
}

func defaultPort(s model.Scheme) int {
	if s.IsSOCKS() {
		return DefaultSOCKSPort
	}
	return DefaultHTTPPort
}

func (o Opener) proxyURL(p model.Proxy) (*url.URL, error) {
	scheme, err := dialerScheme(p.Scheme())
	if err != nil {
		return nil, err
	}
	u := &url.URL{Scheme: scheme}
	if p.Scheme() == model.SchemeSOCKS4 {
		// h12.io/socks cannot be cancelled, so its dial must time out.
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = model.DefaultTimeout
		}
		u.RawQuery = url.Values{"timeout": {timeout.String()}}.Encode()
	}

	auth, hasAuth := p.Credentials()
	switch {
	case p.Port() != 0 && hasAuth:
		u.Host = p.IPPort()
		u.User = url.UserPassword(auth.User, auth.Password)
	case p.Port() != 0:
		u.Host = p.IPPort()
	case hasAuth:
		u.Host = hostPort(p.Addr(), defaultPort(p.Scheme()))
		u.User = url.UserPassword(auth.User, auth.Password)
	default:
		u.Host = hostPort(p.Addr(), defaultPort(p.Scheme()))
	}
	return u, nil
}

func hostPort(addr netip.Addr, port int) string {
	return net.JoinHostPort(addr.String(), strconv.Itoa(port))
}

// dialContext uses d's own DialContext when it has one and otherwise races
// a plain Dial against ctx.
func dialContext(ctx context.Context, d proxy.Dialer, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}

	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		c, err := d.Dial(network, addr)
		done <- result{conn: c, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		return r.conn, r.err
	}
}
