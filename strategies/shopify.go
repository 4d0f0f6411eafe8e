package strategies

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/normalize"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

const (
	noteShopifyJSON = "Agent 6 (Shopify JSON)"
	noteShopifyDOM  = "Agent 6 (Shopify DOM)"
)

const shopifyGlobalScript = `() => !!window.Shopify`

const shopifyMetaScript = `() => {
	const p = window.meta && window.meta.product;
	if (!p || !Array.isArray(p.images)) {
		return [];
	}
	return p.images.map((img) => (typeof img === 'string' ? img : (img && img.src) || '')).filter(Boolean);
}`

var shopifyDOMSelectors = []string{
	".product-single__photo",
	".product__media-item img",
	".product-gallery__image",
	".grid__item .product-card__image",
	"[data-product-single-thumbnail]",
}

const shopifyDOMScript = `(opts) => {
	const out = [];
	for (const sel of opts.selectors) {
		for (const img of document.querySelectorAll(sel)) {
			out.push({
				dataSrc: img.getAttribute('data-src') || '',
				srcset: img.getAttribute('srcset') || img.getAttribute('data-srcset') || '',
				src: img.getAttribute('src') || '',
			});
		}
	}
	return out;
}`

type shopifyDOMArgs struct {
	Selectors []string `json:"selectors"`
}

type shopifyDOMImage struct {
	DataSrc string `json:"dataSrc"`
	Srcset  string `json:"srcset"`
	Src     string `json:"src"`
}

var _ Strategy = (*Shopify)(nil)

// Shopify reads the product payload Shopify themes embed in the page, and
// falls back to the common theme gallery markup.
type Shopify struct {
	norm *normalize.Normalizer
}

func NewShopify(norm *normalize.Normalizer) *Shopify {
	if norm == nil {
		norm = normalize.New()
	}

	return &Shopify{norm: norm}
}

func (s *Shopify) Name() string         { return LabelShopify }
func (s *Shopify) Priority() int        { return PriorityShopify }
func (s *Shopify) Applies(string) bool  { return true }
func (s *Shopify) SelfValidating() bool { return false }

func (s *Shopify) Extract(ctx context.Context, page pageinspect.Page, _ entities.PageContext) (entities.StrategyResult, error) {
	html, err := page.Content(ctx)
	if err != nil {
		return empty(s.Name(), ""), fmt.Errorf("shopify content: %w", err)
	}

	if !s.detect(ctx, page, html) {
		return empty(s.Name(), ""), nil
	}

	urls, err := ShopifyPayloadImages(html)
	if err != nil {
		return empty(s.Name(), ""), err
	}

	var meta []string
	if err := pageinspect.EvaluateInto(ctx, page, shopifyMetaScript, nil, &meta); err == nil {
		urls = append(urls, meta...)
	}

	if cleaned := s.clean(urls); len(cleaned) > 0 {
		return fromURLs(s.Name(), noteShopifyJSON, "shopify/json", cleaned), nil
	}

	var imgs []shopifyDOMImage

	err = pageinspect.EvaluateInto(ctx, page, shopifyDOMScript, shopifyDOMArgs{Selectors: shopifyDOMSelectors}, &imgs)
	if err != nil {
		return empty(s.Name(), ""), fmt.Errorf("shopify gallery: %w", err)
	}

	urls = urls[:0]

	for _, img := range imgs {
		switch {
		case usable(img.DataSrc):
			urls = append(urls, img.DataSrc)
		case pickFromSrcset(img.Srcset) != "":
			urls = append(urls, pickFromSrcset(img.Srcset))
		case usable(img.Src):
			urls = append(urls, img.Src)
		}
	}

	if cleaned := s.clean(urls); len(cleaned) > 0 {
		return fromURLs(s.Name(), noteShopifyDOM, "shopify/dom", cleaned), nil
	}

	return empty(s.Name(), ""), nil
}

func (s *Shopify) detect(ctx context.Context, page pageinspect.Page, html string) bool {
	var global bool
	if err := pageinspect.EvaluateInto(ctx, page, shopifyGlobalScript, nil, &global); err == nil && global {
		return true
	}

	return strings.Contains(html, "cdn.shopify.com") || strings.Contains(html, "myshopify")
}

func (s *Shopify) clean(urls []string) []string {
	ans := make([]string, 0, len(urls))

	for _, u := range urls {
		u = strings.TrimSpace(u)
		if !usable(u) {
			continue
		}

		if strings.HasPrefix(u, "//") {
			u = "https:" + u
		}

		ans = append(ans, s.norm.Rewrite(u))
	}

	return dedupe(ans)
}

// ShopifyPayloadImages returns the image urls found in the product JSON blocks
// of a Shopify page, in document order.
func ShopifyPayloadImages(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("shopify parse: %w", err)
	}

	var ans []string

	doc.Find(`script[type="application/json"]`).Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("id")
		body := sel.Text()

		if !strings.Contains(strings.ToLower(id), "product") && !strings.Contains(body, `"images":`) {
			return
		}

		var data map[string]any
		if err := json.Unmarshal([]byte(body), &data); err != nil {
			return
		}

		if product, ok := data["product"].(map[string]any); ok {
			data = product
		}

		ans = append(ans, payloadImages(data)...)
	})

	return ans, nil
}

func payloadImages(data map[string]any) []string {
	var ans []string

	if images, ok := data["images"].([]any); ok {
		for _, img := range images {
			switch v := img.(type) {
			case string:
				ans = append(ans, v)
			case map[string]any:
				if src, ok := v["src"].(string); ok {
					ans = append(ans, src)
				}
			}
		}
	}

	if media, ok := data["media"].([]any); ok {
		for _, m := range media {
			item, ok := m.(map[string]any)
			if !ok {
				continue
			}

			if preview, ok := item["preview_image"].(map[string]any); ok {
				if src, ok := preview["src"].(string); ok && src != "" {
					ans = append(ans, src)

					continue
				}
			}

			if src, ok := item["src"].(string); ok {
				ans = append(ans, src)
			}
		}
	}

	return ans
}
