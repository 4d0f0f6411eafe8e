// Package judges filters a strategy's candidate urls before they are accepted.
package judges

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

// Judge maps an ordered list of urls to an ordered subset of it.
type Judge interface {
	Name() string
	Judge(pctx entities.PageContext, urls []string) []string
}

// MinURLLength is the shortest url the relevance judge accepts.
const MinURLLength = 10

// NoiseTokens are lowercase substrings that mark decorative or unrelated images.
var NoiseTokens = []string{
	"icon", "logo", "button", "sprite",
	"banner", "promo", "ad-", "advert",
	"social", "facebook", "twitter", "instagram",
	"arrow", "check", "star", "rating",
	"user", "avatar", "profile",
	"swatch",
}

// Relevance drops urls that are empty or too short to be real.
type Relevance struct {
	MinLength int
}

func (Relevance) Name() string { return "relevance" }

func (j Relevance) Judge(_ entities.PageContext, urls []string) []string {
	minLen := j.MinLength
	if minLen <= 0 {
		minLen = MinURLLength
	}

	ans := make([]string, 0, len(urls))

	for _, u := range urls {
		if len(strings.TrimSpace(u)) < minLen {
			continue
		}

		ans = append(ans, u)
	}

	return ans
}

// Noise drops urls containing any denylisted token, case-insensitively.
type Noise struct {
	Tokens []string
}

func (Noise) Name() string { return "noise" }

func (j Noise) Judge(_ entities.PageContext, urls []string) []string {
	tokens := j.Tokens
	if tokens == nil {
		tokens = NoiseTokens
	}

	ans := make([]string, 0, len(urls))

outer:
	for _, u := range urls {
		lower := strings.ToLower(u)

		for _, tok := range tokens {
			if strings.Contains(lower, strings.ToLower(tok)) {
				continue outer
			}
		}

		ans = append(ans, u)
	}

	return ans
}

// Pipeline runs judges in sequence; a url survives only if every judge keeps it.
type Pipeline struct {
	judges []Judge
	log    *zap.Logger
}

func NewPipeline(log *zap.Logger, judges ...Judge) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}

	if len(judges) == 0 {
		judges = []Judge{Relevance{}, Noise{}}
	}

	return &Pipeline{judges: judges, log: log}
}

// Run returns the urls approved by every judge. A judge that panics yields an
// empty verdict.
func (p *Pipeline) Run(pctx entities.PageContext, urls []string, source string) []string {
	current := urls

	for _, j := range p.judges {
		next, err := safeJudge(j, pctx, current)
		if err != nil {
			p.log.Warn("judge failed",
				zap.String("judge", j.Name()),
				zap.String("strategy", source),
				zap.Error(err),
			)

			return []string{}
		}

		current = next
		if len(current) == 0 {
			break
		}
	}

	p.log.Debug("judges reviewed candidates",
		zap.String("strategy", source),
		zap.Int("approved", len(current)),
		zap.Int("candidates", len(urls)),
	)

	return current
}

func safeJudge(j Judge, pctx entities.PageContext, urls []string) (ans []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("judge %s panicked: %v", j.Name(), r)
		}
	}()

	return j.Judge(pctx, urls), nil
}
