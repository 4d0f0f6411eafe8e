package fetchers

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"
)

func toPWProxy(u string) *playwright.Proxy {
	if u == "" {
		return nil
	}

	return &playwright.Proxy{
		Server: u,
	}
}

type roundRobin struct {
	urls []string
	idx  atomic.Int32
}

func newRoundRobin(urls []string) *roundRobin {
	return &roundRobin{urls: urls}
}

// next returns the proxies in turn, or "" when none are configured.
func (r *roundRobin) next() string {
	if len(r.urls) == 0 {
		return ""
	}

	i := r.idx.Add(1) - 1

	return r.urls[int(i)%len(r.urls)]
}

// ParseProxies splits a comma separated proxy list. An entry starting with @
// names a file holding one proxy per line.
func ParseProxies(raw string) ([]string, error) {
	var ans []string

	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)

		switch {
		case p == "":
		case strings.HasPrefix(p, "@"):
			fromFile, err := proxiesFromFile(strings.TrimPrefix(p, "@"))
			if err != nil {
				return nil, err
			}

			ans = append(ans, fromFile...)
		default:
			ans = append(ans, p)
		}
	}

	return ans, nil
}

func proxiesFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxies: %w", err)
	}
	defer file.Close()

	var proxies []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		proxy := strings.TrimSpace(scanner.Text())
		if proxy != "" && !strings.HasPrefix(proxy, "#") {
			proxies = append(proxies, proxy)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxies: %w", err)
	}

	return proxies, nil
}
