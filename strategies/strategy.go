// Package strategies holds the image extraction strategies run by the cascade.
//
// A strategy reads the page through pageinspect.Page and returns its own
// ordered candidates. Strategies share no state and never see each other's
// output.
package strategies

import (
	"context"
	"strings"
	"time"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

// Strategy is one extraction approach.
type Strategy interface {
	// Name is the label reported as strategy_used.
	Name() string
	// Priority orders the cascade, highest first. Priorities must be unique.
	Priority() int
	// Applies reports whether the strategy should run for targetURL.
	Applies(targetURL string) bool
	// SelfValidating strategies filter their own output and bypass the judges.
	SelfValidating() bool
	Extract(ctx context.Context, page pageinspect.Page, pctx entities.PageContext) (entities.StrategyResult, error)
}

// Labels reported as strategy_used.
const (
	LabelElite      = "Agent 7K (Enterprise Luxury)"
	LabelEcommerce  = "Agent 5 (E-commerce)"
	LabelShopify    = "Agent 6 (Shopify)"
	LabelStructural = "Agent 1 (Structural)"
	LabelContext    = "Agent 2 (Context)"
	LabelVisual     = "Agent 3 (Visual)"
	LabelGrid       = "Agent 4 (Myntra)"
)

// Cascade ranks.
const (
	PriorityElite      = 700
	PriorityEcommerce  = 600
	PriorityShopify    = 500
	PriorityStructural = 400
	PriorityContext    = 300
	PriorityVisual     = 200
	PriorityGrid       = 100
)

// Thresholds holds every tunable constant used by the scoring heuristics.
type Thresholds struct {
	// KeywordBoost multiplies the score of elements whose id or class names
	// mention main, hero or product.
	KeywordBoost float64
	// BackgroundWeight discounts background images against <img> elements.
	BackgroundWeight float64

	VisualMinSize float64
	VisualMaxTop  float64
	VisualLimit   int

	ContextMinNatural  float64
	ContextMaxDistance float64
	ContextLimit       int
	ContextMinHeading  int

	EliteMinSize       float64
	EliteViewportLimit float64

	StructuralMinNaturalWidth float64
	StructuralVisibleTimeout  time.Duration

	GridScrollSteps  int
	GridScrollStep   int
	GridScrollWait   time.Duration
	GridIdleTimeout  time.Duration
	GridReloadSettle time.Duration

	// ProbeLimit caps the number of elements a single probe reports.
	ProbeLimit int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		KeywordBoost:     2.0,
		BackgroundWeight: 0.8,

		VisualMinSize: 450,
		VisualMaxTop:  1500,
		VisualLimit:   5,

		ContextMinNatural:  400,
		ContextMaxDistance: 2000,
		ContextLimit:       8,
		ContextMinHeading:  5,

		EliteMinSize:       450,
		EliteViewportLimit: 2000,

		StructuralMinNaturalWidth: 300,
		StructuralVisibleTimeout:  500 * time.Millisecond,

		GridScrollSteps:  4,
		GridScrollStep:   900,
		GridScrollWait:   time.Second,
		GridIdleTimeout:  15 * time.Second,
		GridReloadSettle: 2 * time.Second,

		ProbeLimit: 1500,
	}
}

// hostContains reports whether the lowercased target url mentions any needle.
func hostContains(targetURL string, needles ...string) bool {
	lower := strings.ToLower(targetURL)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}

	return false
}

func empty(label, note string) entities.StrategyResult {
	return entities.StrategyResult{Label: label, Note: note}
}

func fromURLs(label, note, source string, urls []string) entities.StrategyResult {
	ans := entities.StrategyResult{
		Label:      label,
		Note:       note,
		Candidates: make([]entities.Candidate, 0, len(urls)),
	}

	for i, u := range urls {
		ans.Candidates = append(ans.Candidates, entities.Candidate{
			URL:    u,
			Score:  float64(len(urls) - i),
			Source: source,
		})
	}

	return ans
}
