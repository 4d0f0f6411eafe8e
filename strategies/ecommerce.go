package strategies

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/normalize"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

const (
	noteEbay     = "Agent 5 (eBay Specialist)"
	noteAmazon   = "Agent 5 (Amazon Specialist)"
	noteFlipkart = "Agent 5 (Flipkart Specialist)"
)

const ebayScript = `(opts) => {
	const pick = (img) => img.getAttribute('data-zoom-src') || img.getAttribute('data-src') || img.currentSrc || img.getAttribute('src') || '';
	let urls = Array.from(document.querySelectorAll(opts.carousel)).map(pick);
	if (urls.filter(Boolean).length === 0) {
		const active = document.querySelector(opts.active);
		urls = active ? [pick(active)] : [];
	}
	if (urls.filter(Boolean).length === 0) {
		urls = Array.from(document.querySelectorAll(opts.zoom)).map((img) => img.getAttribute('data-zoom-src') || '');
	}
	return urls.filter(Boolean);
}`

type ebayArgs struct {
	Carousel string `json:"carousel"`
	Active   string `json:"active"`
	Zoom     string `json:"zoom"`
}

const amazonScript = `(opts) => {
	const out = { hires: [], dynamic: [], thumbs: [] };
	for (const id of opts.landing) {
		const el = document.getElementById(id);
		if (!el) {
			continue;
		}
		const hires = el.getAttribute('data-old-hires');
		if (hires) {
			out.hires.push(hires);
		}
		const dyn = el.getAttribute('data-a-dynamic-image');
		if (dyn) {
			out.dynamic.push(dyn);
		}
		break;
	}
	for (const img of document.querySelectorAll(opts.thumbs)) {
		const src = img.currentSrc || img.getAttribute('src');
		if (src) {
			out.thumbs.push(src);
		}
	}
	return out;
}`

type amazonArgs struct {
	Landing []string `json:"landing"`
	Thumbs  string   `json:"thumbs"`
}

type amazonImages struct {
	Hires   []string `json:"hires"`
	Dynamic []string `json:"dynamic"`
	Thumbs  []string `json:"thumbs"`
}

const attrListScript = `(opts) => Array.from(document.querySelectorAll(opts.selector))
	.map((el) => el.currentSrc || el.getAttribute(opts.attr) || '')
	.filter(Boolean)`

type attrListArgs struct {
	Selector string `json:"selector"`
	Attr     string `json:"attr"`
}

var _ Strategy = (*Ecommerce)(nil)

// Ecommerce knows the image markup of the large marketplaces.
type Ecommerce struct {
	norm *normalize.Normalizer
}

func NewEcommerce(norm *normalize.Normalizer) *Ecommerce {
	if norm == nil {
		norm = normalize.New()
	}

	return &Ecommerce{norm: norm}
}

func (s *Ecommerce) Name() string         { return LabelEcommerce }
func (s *Ecommerce) Priority() int        { return PriorityEcommerce }
func (s *Ecommerce) SelfValidating() bool { return false }

func (s *Ecommerce) Applies(targetURL string) bool {
	return hostContains(targetURL, "amazon", "ebay", "flipkart")
}

func (s *Ecommerce) Extract(ctx context.Context, page pageinspect.Page, pctx entities.PageContext) (entities.StrategyResult, error) {
	current := page.URL()
	if current == "" {
		current = pctx.PageURL
	}

	var (
		urls []string
		note string
		err  error
	)

	switch {
	case hostContains(current, "ebay"):
		urls, err = s.ebay(ctx, page)
		note = noteEbay
	case hostContains(current, "amazon"):
		urls, err = s.amazon(ctx, page)
		note = noteAmazon
	case hostContains(current, "flipkart"):
		urls, err = s.flipkart(ctx, page)
		note = noteFlipkart
	default:
		return empty(s.Name(), ""), nil
	}

	if err != nil {
		return empty(s.Name(), ""), err
	}

	urls = dedupe(urls)
	if len(urls) == 0 {
		return empty(s.Name(), ""), nil
	}

	return fromURLs(s.Name(), note, "ecommerce", urls), nil
}

func (s *Ecommerce) ebay(ctx context.Context, page pageinspect.Page) ([]string, error) {
	var raw []string

	args := ebayArgs{
		Carousel: ".ux-image-carousel-item img, .ux-image-filmstrip-carousel-item img",
		Active:   ".ux-image-carousel-item.active.image img",
		Zoom:     "img[data-zoom-src]",
	}

	if err := pageinspect.EvaluateInto(ctx, page, ebayScript, args, &raw); err != nil {
		return nil, fmt.Errorf("ebay gallery: %w", err)
	}

	ans := make([]string, 0, len(raw))

	for _, u := range raw {
		if !normalize.IsHTTP(u) || strings.Contains(u, "s-l64") {
			continue
		}

		ans = append(ans, s.norm.Rewrite(u))
	}

	return ans, nil
}

func (s *Ecommerce) amazon(ctx context.Context, page pageinspect.Page) ([]string, error) {
	var imgs amazonImages

	args := amazonArgs{
		Landing: []string{"landingImage", "imgBlkFront"},
		Thumbs:  "#altImages ul li img, #imageBlock .a-button-text img",
	}

	if err := pageinspect.EvaluateInto(ctx, page, amazonScript, args, &imgs); err != nil {
		return nil, fmt.Errorf("amazon gallery: %w", err)
	}

	var ans []string

	ans = append(ans, imgs.Hires...)

	for _, payload := range imgs.Dynamic {
		ans = append(ans, parseDynamicImage(payload)...)
	}

	ans = append(ans, imgs.Thumbs...)

	for i := range ans {
		ans[i] = s.norm.Rewrite(ans[i])
	}

	return ans, nil
}

// parseDynamicImage reads Amazon's data-a-dynamic-image payload, a map of url
// to [width, height], and returns the urls largest first.
func parseDynamicImage(payload string) []string {
	var sizes map[string][]float64
	if err := json.Unmarshal([]byte(payload), &sizes); err != nil {
		return nil
	}

	type entry struct {
		url  string
		area float64
	}

	entries := make([]entry, 0, len(sizes))

	for u, wh := range sizes {
		area := 0.0
		if len(wh) >= 2 {
			area = wh[0] * wh[1]
		}

		entries = append(entries, entry{url: u, area: area})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].area == entries[j].area {
			return entries[i].url < entries[j].url
		}

		return entries[i].area > entries[j].area
	})

	ans := make([]string, len(entries))
	for i := range entries {
		ans[i] = entries[i].url
	}

	return ans
}

func (s *Ecommerce) flipkart(ctx context.Context, page pageinspect.Page) ([]string, error) {
	var raw []string

	args := attrListArgs{Selector: "img._396cs4, img._2r_T1I, img.q6DClP", Attr: "src"}

	if err := pageinspect.EvaluateInto(ctx, page, attrListScript, args, &raw); err != nil {
		return nil, fmt.Errorf("flipkart gallery: %w", err)
	}

	for i := range raw {
		raw[i] = s.norm.Rewrite(raw[i])
	}

	return raw, nil
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	ans := make([]string, 0, len(urls))

	for _, u := range urls {
		u = strings.TrimSpace(u)
		if !usable(u) {
			continue
		}

		if _, ok := seen[u]; ok {
			continue
		}

		seen[u] = struct{}{}

		ans = append(ans, u)
	}

	return ans
}
