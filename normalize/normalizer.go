// Package normalize turns raw candidate image urls into absolute, de-duplicated,
// upgraded urls. Signed urls are never rewritten.
package normalize

import (
	"net/url"
	"path"
	"strings"
)

var (
	// DefaultDenylist rejects urls that are never product photography:
	// decorative assets, social badges, store UI and placeholders.
	DefaultDenylist = []string{
		"base64",
		"placeholder",
		"spinner",
		"loader",
		"transparent",
		"tracking",
		"icon",
		"logo",
		"sprite",
		"social",
		"facebook",
		"twitter",
		"instagram",
		"pinterest",
		"cart",
		"wishlist",
		"search",
	}

	// StrictDenylist is the expanded list used by the enterprise visual
	// strategy, which skips the judges.
	StrictDenylist = []string{
		"base64", "icon", "logo", "button", "star", "rating", "avatar",
		"sprite", "blank", "transparent", "gif", "loader", "spinner",
		"cookielaw", "tracking", "pixel", "facebook", "twitter",
		"instagram", "pinterest", "social", "banner", "campaign",
		"editorial", "cart", "wishlist", "search", "placeholder",
	}

	// DefaultRejectExtensions are vector and animated formats.
	DefaultRejectExtensions = []string{".svg", ".ico", ".gif"}

	// DefaultSensitiveTokens mark urls carrying signatures or credentials.
	// Matching is a substring test on the lowercased url.
	DefaultSensitiveTokens = []string{
		"sig",
		"signature",
		"token",
		"auth",
		"key",
		"hmac",
		"expires",
		"expiry",
		"x-amz-",
		"x-goog-",
		"policy=",
	}
)

type Normalizer struct {
	denylist  []string
	rejectExt []string
	sensitive []string
	rules     []Rule
}

type Option func(*Normalizer)

func WithDenylist(tokens []string) Option {
	return func(n *Normalizer) {
		n.denylist = lowerAll(tokens)
	}
}

func WithRejectExtensions(exts []string) Option {
	return func(n *Normalizer) {
		n.rejectExt = lowerAll(exts)
	}
}

func WithSensitiveTokens(tokens []string) Option {
	return func(n *Normalizer) {
		n.sensitive = lowerAll(tokens)
	}
}

func WithRules(rules []Rule) Option {
	return func(n *Normalizer) {
		n.rules = rules
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		denylist:  DefaultDenylist,
		rejectExt: DefaultRejectExtensions,
		sensitive: DefaultSensitiveTokens,
		rules:     DefaultRules(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Strict returns the normalizer used by self-validating strategies.
func Strict() *Normalizer {
	return New(WithDenylist(StrictDenylist))
}

// Normalize cleans every url in raw, resolving relative urls against base.
// The output keeps first-seen order and holds no duplicates.
func (n *Normalizer) Normalize(raw []string, base string) []string {
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil || !baseURL.IsAbs() {
		baseURL = nil
	}

	seen := make(map[string]struct{}, len(raw))
	ans := make([]string, 0, len(raw))

	for _, r := range raw {
		u, ok := n.clean(r, baseURL)
		if !ok {
			continue
		}

		if _, dup := seen[u]; dup {
			continue
		}

		seen[u] = struct{}{}

		ans = append(ans, u)
	}

	return ans
}

// IsSensitive reports whether u carries an authentication or signature marker.
func (n *Normalizer) IsSensitive(u string) bool {
	lower := strings.ToLower(u)
	for _, tok := range n.sensitive {
		if strings.Contains(lower, tok) {
			return true
		}
	}

	return false
}

// Rewrite applies the platform rule table to u unless u is sensitive.
func (n *Normalizer) Rewrite(u string) string {
	if n.IsSensitive(u) {
		return u
	}

	host := ""
	if parsed, err := url.Parse(u); err == nil {
		host = strings.ToLower(parsed.Hostname())
	}

	for _, rule := range n.rules {
		// the url is lowercased per rule since a previous rule may have changed it
		if rule.Match(host, strings.ToLower(u)) {
			u = rule.Transform(u)
		}
	}

	return u
}

// Rejected reports whether u hits the denylist or a rejected extension.
func (n *Normalizer) Rejected(u string) bool {
	lower := strings.ToLower(u)

	for _, tok := range n.denylist {
		if strings.Contains(lower, tok) {
			return true
		}
	}

	ext := strings.ToLower(path.Ext(pathOf(u)))
	for _, bad := range n.rejectExt {
		if ext == bad {
			return true
		}
	}

	return false
}

func (n *Normalizer) clean(raw string, base *url.URL) (string, bool) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", false
	}

	u, ok := absolute(u, base)
	if !ok {
		return "", false
	}

	if n.Rejected(u) {
		return "", false
	}

	u = n.Rewrite(u)

	if !IsHTTP(u) {
		return "", false
	}

	return u, true
}

func absolute(u string, base *url.URL) (string, bool) {
	switch {
	case strings.HasPrefix(u, "//"):
		return "https:" + u, true
	case IsHTTP(u):
		return u, true
	case strings.HasPrefix(strings.ToLower(u), "data:"):
		return "", false
	}

	ref, err := url.Parse(u)
	if err != nil {
		return "", false
	}

	if ref.IsAbs() {
		// some other scheme (blob:, javascript:, ...)
		return "", false
	}

	if base == nil {
		return "", false
	}

	return base.ResolveReference(ref).String(), true
}

// IsHTTP reports whether u is an http or https url.
func IsHTTP(u string) bool {
	lower := strings.ToLower(u)

	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func pathOf(u string) string {
	if parsed, err := url.Parse(u); err == nil {
		return parsed.Path
	}

	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}

	return u
}

func lowerAll(in []string) []string {
	ans := make([]string, len(in))
	for i := range in {
		ans[i] = strings.ToLower(in[i])
	}

	return ans
}
