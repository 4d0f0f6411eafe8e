package strategies

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

// prominenceKeywords boost elements whose id or class marks them as the main
// product media.
var prominenceKeywords = []string{"main", "hero", "product"}

// zoomAttrs are checked first, in order, for the highest resolution source.
var zoomAttrs = []string{
	"data-zoom-image",
	"data-zoom-src",
	"data-high-res",
	"data-hires",
	"data-old-hires",
	"data-original",
	"data-full",
}

var (
	cssURLRe      = regexp.MustCompile(`url\(\s*(['"]?)(.*?)['"]?\s*\)`)
	imageExtRe    = regexp.MustCompile(`(?i)\.(jpe?g|png|webp|avif)(\?|#|$)`)
	descriptorsRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)([wx])$`)
)

// prominence is area divided by horizontal distance from the viewport center.
func prominence(r rect, viewportWidth float64) float64 {
	deviation := math.Abs(r.centerX() - viewportWidth/2)

	return r.area() / (deviation + 1)
}

func containsAny(s string, tokens []string) bool {
	lower := strings.ToLower(s)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}

	return false
}

// deniedAncestor reports whether any ancestor identity contains a denied token.
func deniedAncestor(ancestors, deny []string) bool {
	for _, a := range ancestors {
		if containsAny(a, deny) {
			return true
		}
	}

	return false
}

// pickFromSrcset returns the entry with the largest descriptor. Entries without
// a descriptor count as 1x; ties keep the later entry.
func pickFromSrcset(srcset string) string {
	var (
		best      string
		bestValue = -1.0
	)

	for _, e := range parseSrcset(srcset) {
		value := 1.0

		if m := descriptorsRe.FindStringSubmatch(strings.ToLower(e.descriptor)); m != nil {
			value, _ = strconv.ParseFloat(m[1], 64)
		}

		if value >= bestValue {
			best = e.url
			bestValue = value
		}
	}

	return best
}

type srcsetEntry struct {
	url        string
	descriptor string
}

// parseSrcset follows the HTML candidate grammar: a url runs until whitespace,
// so commas inside urls survive.
func parseSrcset(s string) []srcsetEntry {
	var ans []srcsetEntry

	isSpace := func(c byte) bool {
		return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
	}

	pos := 0
	for pos < len(s) {
		for pos < len(s) && (isSpace(s[pos]) || s[pos] == ',') {
			pos++
		}

		if pos >= len(s) {
			break
		}

		start := pos
		for pos < len(s) && !isSpace(s[pos]) {
			pos++
		}

		u := s[start:pos]
		desc := ""

		if strings.HasSuffix(u, ",") {
			u = strings.TrimRight(u, ",")
		} else {
			dstart := pos
			for pos < len(s) && s[pos] != ',' {
				pos++
			}

			desc = strings.TrimSpace(s[dstart:pos])
		}

		if u != "" {
			ans = append(ans, srcsetEntry{url: u, descriptor: desc})
		}
	}

	return ans
}

// backgroundURL extracts the first url(...) of a computed background-image.
func backgroundURL(css string) string {
	m := cssURLRe.FindStringSubmatch(css)
	if m == nil {
		return ""
	}

	return strings.TrimSpace(m[2])
}

func usable(u string) bool {
	u = strings.TrimSpace(u)

	return u != "" && !strings.HasPrefix(strings.ToLower(u), "data:")
}

// bestSource walks the source chain of an <img>: zoom attributes, the largest
// srcset entry, currentSrc, then src and its lazy-load variants.
func bestSource(p elementProbe) string {
	for _, name := range zoomAttrs {
		if v := p.Attrs[name]; usable(v) {
			return v
		}
	}

	for _, name := range []string{"srcset", "data-srcset"} {
		if v := pickFromSrcset(p.Attrs[name]); usable(v) {
			return v
		}
	}

	if usable(p.CurrentSrc) {
		return p.CurrentSrc
	}

	for _, name := range []string{"src", "data-src", "data-lazy"} {
		if v := p.Attrs[name]; usable(v) {
			return v
		}
	}

	return ""
}

// resolve makes u absolute against base. Unresolvable urls are returned as is
// and left to the normalizer.
func resolve(base, u string) string {
	u = strings.TrimSpace(u)
	if u == "" || base == "" {
		return u
	}

	ref, err := url.Parse(u)
	if err != nil || ref.IsAbs() {
		return u
	}

	b, err := url.Parse(base)
	if err != nil {
		return u
	}

	return b.ResolveReference(ref).String()
}

func looksLikeImage(u string) bool {
	return imageExtRe.MatchString(u)
}

// scored pairs a candidate with the encounter index used to break ties.
type scored struct {
	entities.Candidate
	index int
	key   float64
}

// rank orders by key, descending unless ascending is set, keeping encounter
// order for ties, and drops duplicate urls.
func rank(items []scored, ascending bool, limit int) []entities.Candidate {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].key == items[j].key {
			return items[i].index < items[j].index
		}

		if ascending {
			return items[i].key < items[j].key
		}

		return items[i].key > items[j].key
	})

	seen := make(map[string]struct{}, len(items))
	ans := make([]entities.Candidate, 0, len(items))

	for i := range items {
		if _, ok := seen[items[i].URL]; ok {
			continue
		}

		seen[items[i].URL] = struct{}{}

		ans = append(ans, items[i].Candidate)

		if limit > 0 && len(ans) == limit {
			break
		}
	}

	return ans
}

func candidateURLs(cands []entities.Candidate) []string {
	ans := make([]string, len(cands))
	for i := range cands {
		ans[i] = cands[i].URL
	}

	return ans
}
