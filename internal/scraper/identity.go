package scraper

import (
	"math/rand"
	"sync"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// IdentityPool hands out the user agent and proxy each new browser session
// presents. Proxies rotate sequentially so load spreads evenly; user agents
// are picked at random.
type IdentityPool struct {
	userAgents []string
	proxies    []string
	mu         sync.Mutex
	proxyIndex int
}

func NewIdentityPool(userAgents, proxies []string) *IdentityPool {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	return &IdentityPool{userAgents: userAgents, proxies: proxies}
}

// UserAgent returns a random user agent string.
func (p *IdentityPool) UserAgent() string {
	if len(p.userAgents) == 0 {
		return ""
	}
	return p.userAgents[rand.Intn(len(p.userAgents))]
}

// Proxy returns the next proxy URL, or "" when none are configured.
func (p *IdentityPool) Proxy() string {
	if len(p.proxies) == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	proxy := p.proxies[p.proxyIndex]
	p.proxyIndex = (p.proxyIndex + 1) % len(p.proxies)
	return proxy
}
