package scraper_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/cascade"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect/pageinspecttest"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/scraper"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/strategies"
)

const productURL = "https://shop.example.com/p/1"

type staticStrategy struct {
	urls  []string
	calls int
}

func (s *staticStrategy) Name() string         { return "static" }
func (s *staticStrategy) Priority() int        { return 1 }
func (s *staticStrategy) Applies(string) bool  { return true }
func (s *staticStrategy) SelfValidating() bool { return false }

func (s *staticStrategy) Extract(context.Context, pageinspect.Page, entities.PageContext) (entities.StrategyResult, error) {
	s.calls++

	res := entities.StrategyResult{Label: "static", Note: "static note"}
	for _, u := range s.urls {
		res.Candidates = append(res.Candidates, entities.Candidate{URL: u})
	}

	return res, nil
}

func newService(t *testing.T, s *staticStrategy) *scraper.Service {
	t.Helper()

	c, err := cascade.New([]strategies.Strategy{s})
	require.NoError(t, err)

	return scraper.New(c, scraper.WithSettle(2*time.Second))
}

func TestScrape(t *testing.T) {
	s := &staticStrategy{urls: []string{"https://cdn.example.com/a.jpg"}}
	page := pageinspecttest.New(productURL)
	page.HTML = "<html><body><h1>Shirt</h1></body></html>"

	res, err := newService(t, s).Scrape(context.Background(), page, productURL)
	require.NoError(t, err)
	assert.Equal(t, entities.Result{
		SourceURL:     productURL,
		StrategyUsed:  "static",
		TotalImages:   1,
		ProductImages: []string{"https://cdn.example.com/a.jpg"},
		Note:          "static note",
	}, res)

	assert.Equal(t, []string{productURL}, page.Navigated())
	assert.Equal(t, 1, page.Moves())
	assert.Equal(t, 2*time.Second+500*time.Millisecond, page.Waited())
}

func TestScrapeNavigationFailure(t *testing.T) {
	s := &staticStrategy{urls: []string{"https://cdn.example.com/a.jpg"}}
	page := pageinspecttest.New(productURL)
	page.NavigateErr = fmt.Errorf("%w: %w", pageinspect.ErrNavigation,
		errors.New("NS_ERROR_UNKNOWN_HOST at https://shop.example.com/p/1 while loading"))

	res, err := newService(t, s).Scrape(context.Background(), page, productURL)
	require.NoError(t, err)
	assert.Equal(t, entities.StrategyNone, res.StrategyUsed)
	assert.Equal(t, "Navigation Failed: NS_ERROR_UNKNOWN_HOST at https://shop.example.com/", res.Note)
	assert.Equal(t, []string{}, res.ProductImages)
	assert.Zero(t, s.calls)
}

func TestScrapeAccessDenied(t *testing.T) {
	s := &staticStrategy{urls: []string{"https://cdn.example.com/a.jpg"}}
	page := pageinspecttest.New(productURL)
	page.PageTitle = "Access Denied"

	res, err := newService(t, s).Scrape(context.Background(), page, productURL)
	require.NoError(t, err)
	assert.Equal(t, scraper.NoteAccessDenied, res.Note)
	assert.Zero(t, res.TotalImages)
	assert.Zero(t, s.calls)
}

func TestScrapeBotChallenge(t *testing.T) {
	s := &staticStrategy{urls: []string{"https://cdn.example.com/a.jpg"}}
	page := pageinspecttest.New(productURL)
	page.HTML = `<html><head><title>Just a moment...</title></head><body><div id="cf-browser-verification"></div></body></html>`

	res, err := newService(t, s).Scrape(context.Background(), page, productURL)
	require.NoError(t, err)
	assert.Equal(t, "BOT_CHALLENGE_DETECTED: Cloudflare challenge", res.Note)
	assert.Zero(t, s.calls)
}

func TestScrapeExhausted(t *testing.T) {
	page := pageinspecttest.New(productURL)

	res, err := newService(t, &staticStrategy{}).Scrape(context.Background(), page, productURL)
	require.NoError(t, err)
	assert.Equal(t, entities.StrategyNone, res.StrategyUsed)
	assert.Equal(t, entities.NoteAllFailed, res.Note)
	assert.Equal(t, []string{}, res.ProductImages)
}

func TestScrapeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(t, &staticStrategy{}).Scrape(ctx, pageinspecttest.New(productURL), productURL)
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{raw: productURL, valid: true},
		{raw: "http://shop.example.com", valid: true},
		{raw: "", valid: false},
		{raw: "   ", valid: false},
		{raw: "ftp://shop.example.com/p", valid: false},
		{raw: "shop.example.com/p/1", valid: false},
		{raw: "https://", valid: false},
		{raw: "javascript:alert(1)", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := scraper.ValidateURL(tt.raw)
			if tt.valid {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, scraper.ErrInvalidURL)
		})
	}
}

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		blocked bool
		reason  string
	}{
		{
			name:    "datadome",
			html:    `<html><body><script src="https://ct.captcha-delivery.com/c.js"></script></body></html>`,
			blocked: true,
			reason:  "DataDome bot protection",
		},
		{
			name:    "short recaptcha page",
			html:    `<html><body><div class="g-recaptcha"></div>Please confirm</body></html>`,
			blocked: true,
			reason:  "reCAPTCHA challenge",
		},
		{
			name: "product page with recaptcha in footer",
			html: `<html><body><main>` + strings.Repeat("Soft cotton shirt with a relaxed fit. ", 100) +
				`</main><footer><div class="g-recaptcha"></div></footer></body></html>`,
			blocked: false,
		},
		{
			name:    "plain page",
			html:    `<html><body><h1>Linen Shirt</h1></body></html>`,
			blocked: false,
		},
		{
			name:    "empty",
			html:    "",
			blocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, reason := scraper.IsBlocked(tt.html)
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
