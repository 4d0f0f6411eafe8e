package strategies

import (
	"context"
	"fmt"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/normalize"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

var _ Strategy = (*Elite)(nil)

// Elite is the high-trust visual pass. It reads open shadow roots, scores
// <img> elements and background images together and filters its own output
// with the strict normalizer, so its result is accepted without judging.
type Elite struct {
	th   Thresholds
	norm *normalize.Normalizer
}

func NewElite(th Thresholds, norm *normalize.Normalizer) *Elite {
	if norm == nil {
		norm = normalize.Strict()
	}

	return &Elite{th: th, norm: norm}
}

func (s *Elite) Name() string         { return LabelElite }
func (s *Elite) Priority() int        { return PriorityElite }
func (s *Elite) Applies(string) bool  { return true }
func (s *Elite) SelfValidating() bool { return true }

func (s *Elite) Extract(ctx context.Context, page pageinspect.Page, _ entities.PageContext) (entities.StrategyResult, error) {
	report, err := runProbe(ctx, page, probeOptions{
		Shadow:      true,
		Images:      true,
		Backgrounds: true,
	}, s.th.ProbeLimit)
	if err != nil {
		return empty(s.Name(), ""), fmt.Errorf("elite probe: %w", err)
	}

	ranked := s.score(report)

	urls := s.norm.Normalize(candidateURLs(ranked), report.BaseURI)
	if len(urls) == 0 {
		return empty(s.Name(), ""), nil
	}

	return fromURLs(s.Name(), s.Name(), "elite", urls), nil
}

func (s *Elite) inRegion(r rect) bool {
	return r.Width > 0 && r.Height > 0 && r.Top < s.th.EliteViewportLimit && r.Bottom > 0
}

func (s *Elite) score(report probeReport) []entities.Candidate {
	var items []scored

	for _, p := range report.Items {
		if p.Hidden || !s.inRegion(p.Rect) {
			continue
		}

		var (
			src   string
			score float64
		)

		switch p.Kind {
		case kindImage:
			w, h := p.NaturalWidth, p.NaturalHeight
			if w == 0 {
				w = p.Rect.Width
			}

			if h == 0 {
				h = p.Rect.Height
			}

			if w < s.th.EliteMinSize && h < s.th.EliteMinSize {
				continue
			}

			src = bestSource(p)
			score = prominence(p.Rect, report.ViewportWidth)

			if containsAny(p.Identity, prominenceKeywords) {
				score *= s.th.KeywordBoost
			}
		case kindBackground:
			if p.Rect.Width < s.th.EliteMinSize && p.Rect.Height < s.th.EliteMinSize {
				continue
			}

			src = backgroundURL(p.Background)
			score = p.Rect.area() * s.th.BackgroundWeight
		default:
			continue
		}

		if !usable(src) {
			continue
		}

		items = append(items, scored{
			Candidate: entities.Candidate{
				URL:    resolve(report.BaseURI, src),
				Score:  score,
				Source: "elite/" + p.Kind,
			},
			index: p.Index,
			key:   score,
		})
	}

	return rank(items, false, 0)
}
