package strategies

import (
	"context"
	"fmt"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

// visualDeny marks ancestors that hold recommendations or page chrome.
var visualDeny = []string{
	"related", "recommend", "suggest", "footer", "nav", "header", "instagram", "social",
}

var _ Strategy = (*Visual)(nil)

// Visual ranks the large images of the first screenful by prominence.
type Visual struct {
	th Thresholds
}

func NewVisual(th Thresholds) *Visual {
	return &Visual{th: th}
}

func (s *Visual) Name() string         { return LabelVisual }
func (s *Visual) Priority() int        { return PriorityVisual }
func (s *Visual) Applies(string) bool  { return true }
func (s *Visual) SelfValidating() bool { return false }

func (s *Visual) Extract(ctx context.Context, page pageinspect.Page, _ entities.PageContext) (entities.StrategyResult, error) {
	report, err := runProbe(ctx, page, probeOptions{Images: true}, s.th.ProbeLimit)
	if err != nil {
		return empty(s.Name(), ""), fmt.Errorf("visual probe: %w", err)
	}

	cands := s.score(report)
	if len(cands) == 0 {
		return empty(s.Name(), "Visual: No prominent images found in top fold."), nil
	}

	return entities.StrategyResult{
		Candidates: cands,
		Label:      s.Name(),
		Note:       fmt.Sprintf("Visual: Found %d large images in top viewport.", len(cands)),
	}, nil
}

func (s *Visual) score(report probeReport) []entities.Candidate {
	var items []scored

	for _, p := range report.Items {
		if p.Kind != kindImage || p.Hidden {
			continue
		}

		r := p.Rect
		if r.Top > s.th.VisualMaxTop {
			continue
		}

		if r.Width < s.th.VisualMinSize || r.Height < s.th.VisualMinSize {
			continue
		}

		if containsAny(p.Identity, visualDeny) || deniedAncestor(p.Ancestors, visualDeny) {
			continue
		}

		src := bestSource(p)
		if src == "" {
			continue
		}

		score := prominence(r, report.ViewportWidth)
		if containsAny(p.Identity, prominenceKeywords) {
			score *= s.th.KeywordBoost
		}

		items = append(items, scored{
			Candidate: entities.Candidate{
				URL:    resolve(report.BaseURI, src),
				Score:  score,
				Source: "visual",
			},
			index: p.Index,
			key:   score,
		})
	}

	return rank(items, false, s.th.VisualLimit)
}
