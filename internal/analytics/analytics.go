package analytics

import (
	"net/netip"
	"time"

	"github.com/August26/proxyline/internal/model"
)

// Compute summarises a check pass over checked, of which live answered.
func Compute(checked []model.Proxy, live *model.Set, duration time.Duration) model.BatchStats {
	stats := model.BatchStats{
		TotalProxies:          len(checked),
		TotalProcessingTimeMs: duration.Milliseconds(),
	}

	hosts := make(map[netip.Addr]struct{})
	for _, p := range checked {
		hosts[p.Addr()] = struct{}{}
	}
	stats.UniqueHosts = len(hosts)

	if live != nil {
		for _, p := range live.Slice() {
			stats.AliveProxies++

			if stats.AliveByScheme == nil {
				stats.AliveByScheme = make(map[string]int)
			}
			stats.AliveByScheme[p.Scheme().String()]++

			if cc, ok := p.Country(); ok {
				if stats.AliveByCountry == nil {
					stats.AliveByCountry = make(map[string]int)
				}
				stats.AliveByCountry[cc]++
			}
		}
	}

	if stats.TotalProxies > 0 {
		stats.SuccessRatePct = (float64(stats.AliveProxies) / float64(stats.TotalProxies)) * 100.0
	}

	return stats
}
