package deduper

import (
	"context"
	"hash/fnv"
	"net/url"
	"strings"
	"sync"
)

var _ Deduper = (*hashmap)(nil)

type hashmap struct {
	mux  *sync.RWMutex
	seen map[uint64]struct{}
}

func (d *hashmap) AddIfNotExists(_ context.Context, raw string) bool {
	h := d.hash(canonical(raw))

	d.mux.RLock()
	if _, ok := d.seen[h]; ok {
		d.mux.RUnlock()
		return false
	}

	d.mux.RUnlock()

	d.mux.Lock()
	defer d.mux.Unlock()

	if _, ok := d.seen[h]; ok {
		return false
	}

	d.seen[h] = struct{}{}

	return true
}

func (d *hashmap) Len() int {
	d.mux.RLock()
	defer d.mux.RUnlock()

	return len(d.seen)
}

func (d *hashmap) hash(key string) uint64 {
	h := fnv.New64()
	h.Write([]byte(key))

	return h.Sum64()
}

// canonical drops the fragment and lowercases scheme and host. Path and
// query are kept as is since product ids often live there.
func canonical(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	return u.String()
}
