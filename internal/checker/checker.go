package checker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/url"
	"runtime"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"github.com/August26/proxyline/internal/logging"
	"github.com/August26/proxyline/internal/model"
	"github.com/August26/proxyline/internal/tunnel"
)

// OpenFunc returns a dialer tunneled through p.
type OpenFunc func(p model.Proxy, network string) (proxy.ContextDialer, error)

// Checker tests proxies by connecting to a target through them.
type Checker struct {
	Open           OpenFunc
	Timeout        time.Duration
	MaxConcurrency int
	Network        string
	// Parallelism scales the pool with the input size. Zero means
	// runtime.NumCPU().
	Parallelism int
	Logger      *slog.Logger
	// OnResult is called from worker goroutines after every check and must
	// be safe for concurrent use.
	OnResult func(p model.Proxy, alive bool)
}

// New returns a Checker configured from cfg that opens real tunnels.
func New(cfg model.Config, logger *slog.Logger) *Checker {
	c := &Checker{
		Timeout:        cfg.Timeout,
		MaxConcurrency: cfg.Concurrency,
		Network:        cfg.Network,
		Logger:         logger,
	}
	c.Open = TunnelOpener(tunnel.Opener{Timeout: c.timeout()})
	return c
}

// TunnelOpener adapts a tunnel.Opener to OpenFunc.
func TunnelOpener(o tunnel.Opener) OpenFunc {
	return func(p model.Proxy, network string) (proxy.ContextDialer, error) {
		return o.Open(p, network)
	}
}

// ParseTarget parses the URL proxies are checked against.
func ParseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("parse target: no host in %q", raw)
	}
	return u, nil
}

// TargetAddr returns host:port for u. Without an explicit port https
// targets use 443 and everything else 80.
func TargetAddr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// PoolSize returns round(n * parallelism) clamped to [1, max].
func PoolSize(n, parallelism, max int) int {
	if max < 1 {
		max = model.DefaultConcurrency
	}
	size := int(math.Round(float64(n) * float64(parallelism)))
	if size > max {
		size = max
	}
	if size < 1 {
		size = 1
	}
	return size
}

func (c *Checker) log() *slog.Logger {
	if c.Logger == nil {
		return logging.Discard()
	}
	return c.Logger
}

func (c *Checker) timeout() time.Duration {
	if c.Timeout <= 0 {
		return model.DefaultTimeout
	}
	return c.Timeout
}

func (c *Checker) network() string {
	if c.Network == "" {
		return "tcp"
	}
	return c.Network
}

func (c *Checker) parallelism() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.NumCPU()
}

func (c *Checker) opener() OpenFunc {
	if c.Open != nil {
		return c.Open
	}
	return TunnelOpener(tunnel.Opener{Timeout: c.timeout()})
}

// CheckOne reports whether a connection to target through p completes within
// the timeout. Every failure counts as dead; nothing is retried.
func (c *Checker) CheckOne(ctx context.Context, p model.Proxy, target *url.URL) bool {
	d, err := c.opener()(p, c.network())
	if err != nil {
		c.log().Debug("open tunnel failed", "proxy", p.String(), "err", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	conn, err := d.DialContext(ctx, c.network(), TargetAddr(target))
	if err != nil {
		c.log().Debug("proxy dead", "proxy", p.String(), "err", err)
		return false
	}
	_ = conn.Close()

	c.log().Debug("proxy alive", "proxy", p.String())
	return true
}

// CheckAll checks every proxy on a bounded pool of workers and returns the
// ones that are alive. It returns once every check has finished; ctx only
// bounds the individual connection attempts.
func (c *Checker) CheckAll(ctx context.Context, proxies []model.Proxy, target *url.URL) *model.Set {
	size := PoolSize(len(proxies), c.parallelism(), c.MaxConcurrency)

	var (
		mu   sync.Mutex
		live = model.NewSet()
		wg   sync.WaitGroup
		jobs = make(chan model.Proxy)
	)

	for i := 0; i < size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				alive := c.CheckOne(ctx, p, target)
				if alive {
					mu.Lock()
					live.Add(p)
					mu.Unlock()
				}
				if c.OnResult != nil {
					c.OnResult(p, alive)
				}
			}
		}()
	}

	for _, p := range proxies {
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	c.log().Debug("check pass finished",
		"workers", size,
		"total", len(proxies),
		"alive", live.Len(),
	)
	return live
}
