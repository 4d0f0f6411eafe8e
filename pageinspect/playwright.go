package pageinspect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

var _ Page = (*pwPage)(nil)

type pwPage struct {
	page playwright.Page
}

// FromPlaywright adapts a playwright page.
func FromPlaywright(page playwright.Page) Page {
	return &pwPage{page: page}
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func (p *pwPage) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.page.IsClosed() {
		return ErrClosed
	}

	return nil
}

func (p *pwPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.check(ctx); err != nil {
		return err
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(timeout),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}

	return nil
}

func (p *pwPage) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := p.check(ctx); err != nil {
		return nil, err
	}

	if arg == nil {
		return p.page.Evaluate(script)
	}

	return p.page.Evaluate(script, plain(arg))
}

// plain converts arg into maps, slices and scalars so that struct field names
// follow their json tags inside the page.
func plain(arg any) any {
	switch arg.(type) {
	case nil, string, bool, int, int64, float64:
		return arg
	}

	b, err := json.Marshal(arg)
	if err != nil {
		return arg
	}

	var ans any
	if err := json.Unmarshal(b, &ans); err != nil {
		return arg
	}

	return ans
}

func (p *pwPage) Count(ctx context.Context, selector string) (int, error) {
	if err := p.check(ctx); err != nil {
		return 0, err
	}

	return p.page.Locator(selector).Count()
}

func (p *pwPage) IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	if err := p.check(ctx); err != nil {
		return false, err
	}

	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	})
	if err != nil {
		// a timeout only means the element never became visible
		return false, nil
	}

	return true, nil
}

func (p *pwPage) Content(ctx context.Context) (string, error) {
	if err := p.check(ctx); err != nil {
		return "", err
	}

	return p.page.Content()
}

func (p *pwPage) Title(ctx context.Context) (string, error) {
	if err := p.check(ctx); err != nil {
		return "", err
	}

	return p.page.Title()
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) ScrollBy(ctx context.Context, dy int) error {
	_, err := p.Evaluate(ctx, `(dy) => window.scrollBy(0, dy)`, dy)

	return err
}

func (p *pwPage) Reload(ctx context.Context) error {
	if err := p.check(ctx); err != nil {
		return err
	}

	_, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	return err
}

func (p *pwPage) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	if err := p.check(ctx); err != nil {
		return err
	}

	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: ms(timeout),
	})
}

func (p *pwPage) MoveMouse(ctx context.Context, x, y float64) error {
	if err := p.check(ctx); err != nil {
		return err
	}

	return p.page.Mouse().Move(x, y)
}

func (p *pwPage) Wait(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}
