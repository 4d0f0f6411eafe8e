package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

var contextDeny = []string{
	"related", "recommend", "suggest", "like", "similar", "footer", "nav", "header", "promo",
}

// anchorFallback is tried when no h1 carries a usable title.
const anchorFallback = "h2, .product-title, .pdp-title"

const anchorScript = `(opts) => {
	let anchor = null;
	for (const h1 of document.querySelectorAll('h1')) {
		if ((h1.innerText || '').trim().length > opts.minLength) {
			anchor = h1;
			break;
		}
	}
	if (!anchor) {
		anchor = document.querySelector(opts.fallback);
	}
	if (!anchor) {
		return null;
	}
	const r = anchor.getBoundingClientRect();
	return { top: r.top, text: (anchor.innerText || '').trim() };
}`

type anchorArgs struct {
	MinLength int    `json:"minLength"`
	Fallback  string `json:"fallback"`
}

type anchor struct {
	Top  float64 `json:"top"`
	Text string  `json:"text"`
}

var _ Strategy = (*ContextAnchored)(nil)

// ContextAnchored ranks images by their vertical distance to the product title.
type ContextAnchored struct {
	th Thresholds
}

func NewContextAnchored(th Thresholds) *ContextAnchored {
	return &ContextAnchored{th: th}
}

func (s *ContextAnchored) Name() string         { return LabelContext }
func (s *ContextAnchored) Priority() int        { return PriorityContext }
func (s *ContextAnchored) Applies(string) bool  { return true }
func (s *ContextAnchored) SelfValidating() bool { return false }

func (s *ContextAnchored) Extract(ctx context.Context, page pageinspect.Page, _ entities.PageContext) (entities.StrategyResult, error) {
	var a *anchor

	args := anchorArgs{MinLength: s.th.ContextMinHeading, Fallback: anchorFallback}
	if err := pageinspect.EvaluateInto(ctx, page, anchorScript, args, &a); err != nil {
		return empty(s.Name(), ""), fmt.Errorf("context anchor: %w", err)
	}

	if a == nil {
		return empty(s.Name(), "Context: No Product Title found to anchor search."), nil
	}

	report, err := runProbe(ctx, page, probeOptions{Images: true}, s.th.ProbeLimit)
	if err != nil {
		return empty(s.Name(), ""), fmt.Errorf("context probe: %w", err)
	}

	cands := s.score(report, *a)
	if len(cands) == 0 {
		return empty(s.Name(), "Context: No clean images found near title."), nil
	}

	return entities.StrategyResult{
		Candidates: cands,
		Label:      s.Name(),
		Note:       fmt.Sprintf("Context: Found %d images near title '%s...'", len(cands), truncate(a.Text, 20)),
	}, nil
}

func (s *ContextAnchored) score(report probeReport, a anchor) []entities.Candidate {
	var items []scored

	for _, p := range report.Items {
		if p.Kind != kindImage || p.Hidden {
			continue
		}

		if p.NaturalWidth < s.th.ContextMinNatural || p.NaturalHeight < s.th.ContextMinNatural {
			continue
		}

		if containsAny(p.Identity, contextDeny) || deniedAncestor(p.Ancestors, contextDeny) {
			continue
		}

		if p.Rect.Top > a.Top+s.th.ContextMaxDistance {
			continue
		}

		src := bestSource(p)
		if src == "" {
			continue
		}

		dy := math.Abs(p.Rect.Top - a.Top)

		items = append(items, scored{
			Candidate: entities.Candidate{
				URL:    resolve(report.BaseURI, src),
				Score:  -dy,
				Source: "context",
			},
			index: p.Index,
			key:   dy,
		})
	}

	return rank(items, true, s.th.ContextLimit)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}
