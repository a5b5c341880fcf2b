package checker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/armon/go-socks5"
	"golang.org/x/net/proxy"

	"github.com/August26/proxyline/internal/model"
)

func mustProxy(t *testing.T, host string, port int) model.Proxy {
	t.Helper()
	p, err := model.New(host, port, model.SchemeSOCKS5, model.Credentials{})
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return p
}

func mustTarget(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := ParseTarget(raw)
	if err != nil {
		t.Fatalf("ParseTarget: %v", err)
	}
	return u
}

type dialerFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func (f dialerFunc) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return f(ctx, network, addr)
}

func liveDialer() proxy.ContextDialer {
	return dialerFunc(func(ctx context.Context, network, addr string) (net.Conn, error) {
		a, b := net.Pipe()
		b.Close()
		return a, nil
	})
}

func hangingDialer() proxy.ContextDialer {
	return dialerFunc(func(ctx context.Context, network, addr string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

func TestPoolSize(t *testing.T) {
	tests := []struct {
		n, par, max, want int
	}{
		{0, 8, 100, 1},
		{1, 8, 100, 8},
		{3, 4, 100, 12},
		{1000, 8, 100, 100},
		{5, 1, 1000, 5},
		{10, 4, 0, 40},
		{10000, 4, 0, model.DefaultConcurrency},
	}
	for _, tt := range tests {
		if got := PoolSize(tt.n, tt.par, tt.max); got != tt.want {
			t.Errorf("PoolSize(%d, %d, %d) = %d, want %d", tt.n, tt.par, tt.max, got, tt.want)
		}
	}
}

func TestTargetAddr(t *testing.T) {
	tests := map[string]string{
		"https://httpbin.org/get":  "httpbin.org:443",
		"http://example.com/":      "example.com:80",
		"http://example.com:8080/": "example.com:8080",
		"tcp://10.0.0.1":           "10.0.0.1:80",
		"https://[2001:db8::1]/x":  "[2001:db8::1]:443",
	}
	for raw, want := range tests {
		if got := TargetAddr(mustTarget(t, raw)); got != want {
			t.Errorf("TargetAddr(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseTarget_NoHost(t *testing.T) {
	if _, err := ParseTarget("/just/a/path"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCheckOne(t *testing.T) {
	target := mustTarget(t, "http://example.com")
	p := mustProxy(t, "10.0.0.1", 1080)

	c := &Checker{Timeout: 50 * time.Millisecond}

	c.Open = func(model.Proxy, string) (proxy.ContextDialer, error) { return liveDialer(), nil }
	if !c.CheckOne(context.Background(), p, target) {
		t.Fatal("expected alive")
	}

	c.Open = func(model.Proxy, string) (proxy.ContextDialer, error) { return hangingDialer(), nil }
	start := time.Now()
	if c.CheckOne(context.Background(), p, target) {
		t.Fatal("expected dead on timeout")
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout not applied")
	}

	c.Open = func(model.Proxy, string) (proxy.ContextDialer, error) { return nil, errors.New("boom") }
	if c.CheckOne(context.Background(), p, target) {
		t.Fatal("expected dead when the tunnel cannot be opened")
	}
}

func TestCheckAll_OneLiveTwoTimeouts(t *testing.T) {
	live := mustProxy(t, "10.0.0.2", 1080)
	dead1 := mustProxy(t, "10.0.0.1", 1080)
	dead2 := mustProxy(t, "10.0.0.3", 1080)

	c := &Checker{
		Timeout: 100 * time.Millisecond,
		Open: func(p model.Proxy, _ string) (proxy.ContextDialer, error) {
			if p.Equal(live) {
				return liveDialer(), nil
			}
			return hangingDialer(), nil
		},
	}

	for _, order := range [][]model.Proxy{{dead1, live, dead2}, {live, dead1, dead2}, {dead2, dead1, live}} {
		got := c.CheckAll(context.Background(), order, mustTarget(t, "http://example.com"))
		if got.Len() != 1 || !got.Contains(live) {
			t.Fatalf("CheckAll = %v, want only %v", got.Slice(), live)
		}
	}
}

func TestCheckAll_BoundsConcurrency(t *testing.T) {
	const limit = 4
	var inflight, peak atomic.Int64

	c := &Checker{
		Timeout:        time.Second,
		MaxConcurrency: limit,
		Parallelism:    8,
		Open: func(model.Proxy, string) (proxy.ContextDialer, error) {
			return dialerFunc(func(ctx context.Context, network, addr string) (net.Conn, error) {
				n := inflight.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inflight.Add(-1)
				a, b := net.Pipe()
				b.Close()
				return a, nil
			}), nil
		},
	}

	var proxies []model.Proxy
	for i := 1; i <= 60; i++ {
		proxies = append(proxies, mustProxy(t, "10.0.1.1", 1000+i))
	}

	var mu sync.Mutex
	seen := 0
	c.OnResult = func(model.Proxy, bool) {
		mu.Lock()
		seen++
		mu.Unlock()
	}

	got := c.CheckAll(context.Background(), proxies, mustTarget(t, "http://example.com"))
	if got.Len() != len(proxies) {
		t.Fatalf("alive = %d, want %d", got.Len(), len(proxies))
	}
	if seen != len(proxies) {
		t.Fatalf("OnResult called %d times, want %d", seen, len(proxies))
	}
	if p := peak.Load(); p > limit {
		t.Fatalf("peak in-flight checks = %d, limit %d", p, limit)
	}
}

func TestCheckAll_Empty(t *testing.T) {
	c := &Checker{Open: func(model.Proxy, string) (proxy.ContextDialer, error) { return liveDialer(), nil }}
	if got := c.CheckAll(context.Background(), nil, mustTarget(t, "http://example.com")); got.Len() != 0 {
		t.Fatalf("Len() = %d", got.Len())
	}
}

func TestCheckAll_RealTunnels(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer target.Close()

	srv, err := socks5.New(&socks5.Config{})
	if err != nil {
		t.Fatal(err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go srv.Serve(l)

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	deadPort := closed.Addr().(*net.TCPAddr).Port
	closed.Close()

	live := mustProxy(t, "127.0.0.1", l.Addr().(*net.TCPAddr).Port)
	dead := mustProxy(t, "127.0.0.1", deadPort)

	c := New(model.Config{Timeout: 2 * time.Second, Concurrency: 10}, nil)
	got := c.CheckAll(context.Background(), []model.Proxy{live, dead}, mustTarget(t, target.URL))
	if got.Len() != 1 || !got.Contains(live) {
		t.Fatalf("CheckAll = %v, want only %v", got.Slice(), live)
	}
}
