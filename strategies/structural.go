package strategies

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

type gallerySelector struct {
	css string
	// container is the element extraction is scoped to, when it differs from css.
	container string
	// direct selectors match the images themselves.
	direct bool
}

var gallerySelectors = []gallerySelector{
	{css: ".img-container .rilrtl-lazy-img", container: ".slick-track", direct: true},
	{css: ".slick-track"},
	{css: ".product-gallery"},
	{css: "#product-gallery"},
	{css: `[data-testid="product-gallery"]`},
	{css: ".product-images"},
	{css: ".product-media"},
	{css: ".swiper-container"},
	{css: ".swiper-wrapper"},
	{css: ".slick-slider"},
	{css: ".owl-stage"},
	{css: ".product__media-gallery"},
	{css: ".pdp-gallery"},
	{css: `[class*="Gallery"]`},
	{css: `[class*="Carousel"]`},
}

const semanticRegion = `section[aria-label*="gallery"], div[aria-label*="gallery"], [role="region"][aria-label*="product images"]`

var ajioHighResRe = regexp.MustCompile(`https?://[^"'\s]+-1117Wx1400H-[^"'\s]+\.(?:jpg|jpeg|webp)`)

// galleryLibraries are container classes whose images may not have loaded yet.
var galleryLibraries = []string{"slick-track", "swiper-wrapper"}

var _ Strategy = (*Structural)(nil)

// Structural extracts from an explicit gallery container and never falls back
// to the whole page.
type Structural struct {
	th Thresholds
}

func NewStructural(th Thresholds) *Structural {
	return &Structural{th: th}
}

func (s *Structural) Name() string         { return LabelStructural }
func (s *Structural) Priority() int        { return PriorityStructural }
func (s *Structural) Applies(string) bool  { return true }
func (s *Structural) SelfValidating() bool { return false }

func (s *Structural) Extract(ctx context.Context, page pageinspect.Page, _ entities.PageContext) (entities.StrategyResult, error) {
	if strings.Contains(strings.ToLower(page.URL()), "ajio.com") {
		urls, err := s.ajioRescue(ctx, page)
		if err != nil {
			return empty(s.Name(), ""), err
		}

		if len(urls) > 0 {
			return fromURLs(s.Name(), "Structural: AJIO High-Res Regex", "structural/ajio", urls), nil
		}
	}

	for _, g := range gallerySelectors {
		urls, err := s.fromSelector(ctx, page, g)
		if err != nil {
			if ctx.Err() != nil {
				return empty(s.Name(), ""), ctx.Err()
			}

			continue
		}

		if len(urls) > 0 {
			return fromURLs(s.Name(), "Structural: "+g.css, "structural", urls), nil
		}
	}

	urls, err := s.fromRegion(ctx, page)
	if err != nil && ctx.Err() != nil {
		return empty(s.Name(), ""), ctx.Err()
	}

	if len(urls) > 0 {
		return fromURLs(s.Name(), "Structural: Semantic Region", "structural/region", urls), nil
	}

	return empty(s.Name(), "No explicit gallery container found."), nil
}

// ajioRescue pulls the 1117x1400 renditions that AJIO only references in markup.
func (s *Structural) ajioRescue(ctx context.Context, page pageinspect.Page) ([]string, error) {
	html, err := page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("structural content: %w", err)
	}

	seen := map[string]struct{}{}

	var ans []string

	for _, m := range ajioHighResRe.FindAllString(html, -1) {
		if strings.Contains(m, "SWATCH") || strings.Contains(m, "loader") {
			continue
		}

		if _, ok := seen[m]; ok {
			continue
		}

		seen[m] = struct{}{}

		ans = append(ans, m)
	}

	return ans, nil
}

func (s *Structural) fromSelector(ctx context.Context, page pageinspect.Page, g gallerySelector) ([]string, error) {
	visible, err := page.IsVisible(ctx, g.css, s.th.StructuralVisibleTimeout)
	if err != nil || !visible {
		return nil, err
	}

	countSel := g.css + " img"
	if g.direct {
		countSel = g.css
	}

	count, err := page.Count(ctx, countSel)
	if err != nil || count == 0 {
		return nil, err
	}

	container := g.container
	if container == "" {
		container = g.css
	}

	report, err := runProbe(ctx, page, probeOptions{Scope: container, Images: true}, s.th.ProbeLimit)
	if err != nil {
		return nil, err
	}

	exempt := strings.Contains(report.ScopeID, "gallery")
	for _, lib := range galleryLibraries {
		if hasClass(report.ScopeClass, lib) {
			exempt = true
		}
	}

	return s.collect(report, exempt), nil
}

func (s *Structural) fromRegion(ctx context.Context, page pageinspect.Page) ([]string, error) {
	visible, err := page.IsVisible(ctx, semanticRegion, s.th.StructuralVisibleTimeout)
	if err != nil || !visible {
		return nil, err
	}

	count, err := page.Count(ctx, semanticRegion+" img")
	if err != nil || count == 0 {
		return nil, err
	}

	report, err := runProbe(ctx, page, probeOptions{Scope: semanticRegion, Images: true}, s.th.ProbeLimit)
	if err != nil {
		return nil, err
	}

	return s.collect(report, false), nil
}

func (s *Structural) collect(report probeReport, exempt bool) []string {
	seen := map[string]struct{}{}

	var ans []string

	for _, p := range report.Items {
		if p.Kind != kindImage {
			continue
		}

		if hasClassAnywhere(p.Ancestors, "related-products") {
			continue
		}

		if !exempt && p.NaturalWidth < s.th.StructuralMinNaturalWidth {
			continue
		}

		src := structuralSource(p)
		if src == "" {
			continue
		}

		src = resolve(report.BaseURI, src)
		if _, ok := seen[src]; ok {
			continue
		}

		seen[src] = struct{}{}

		ans = append(ans, src)
	}

	return ans
}

// structuralSource prefers zoom attributes, then a linked full-size file, then
// the largest srcset entry, then lazy-load attributes.
func structuralSource(p elementProbe) string {
	for _, name := range []string{"data-zoom-src", "data-zoom-image", "data-high-res", "data-original", "data-full"} {
		if v := p.Attrs[name]; usable(v) {
			return v
		}
	}

	if usable(p.ParentHref) && looksLikeImage(p.ParentHref) {
		return p.ParentHref
	}

	if v := pickFromSrcset(p.Attrs["srcset"]); usable(v) {
		return v
	}

	for _, name := range []string{"data-lazy", "data-src"} {
		if v := p.Attrs[name]; usable(v) {
			return v
		}
	}

	if usable(p.CurrentSrc) {
		return p.CurrentSrc
	}

	if v := p.Attrs["src"]; usable(v) {
		return v
	}

	return ""
}

func hasClass(classes, name string) bool {
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}

	return false
}

func hasClassAnywhere(identities []string, name string) bool {
	for _, id := range identities {
		if hasClass(id, name) {
			return true
		}
	}

	return false
}
