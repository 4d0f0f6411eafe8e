// Package pageinspecttest provides an in-memory pageinspect.Page for tests.
package pageinspecttest

import (
	"context"
	"sync"
	"time"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

var _ pageinspect.Page = (*Page)(nil)

// ScriptFunc answers one in-page script. arg is the value the caller passed.
type ScriptFunc func(arg any) (any, error)

// Page is a scripted fake. Unknown scripts evaluate to nil.
type Page struct {
	PageURL     string
	PageTitle   string
	HTML        string
	NavigateErr error
	TitleErr    error
	ContentErr  error

	// Scripts maps script source to its answer.
	Scripts map[string]ScriptFunc
	// Counts maps selectors to their match count.
	Counts map[string]int
	// Visible marks selectors as visible.
	Visible map[string]bool

	// OnReload is invoked on every Reload.
	OnReload func(p *Page)

	mu        sync.Mutex
	calls     map[string]int
	navigated []string
	scrolled  int
	reloads   int
	moves     int
	waited    time.Duration
}

func New(url string) *Page {
	return &Page{
		PageURL: url,
		Scripts: map[string]ScriptFunc{},
		Counts:  map[string]int{},
		Visible: map[string]bool{},
	}
}

// Handle registers the answer for script.
func (p *Page) Handle(script string, fn ScriptFunc) *Page {
	p.Scripts[script] = fn

	return p
}

// Returns registers a constant answer for script.
func (p *Page) Returns(script string, v any) *Page {
	return p.Handle(script, func(any) (any, error) { return v, nil })
}

func (p *Page) record(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.calls == nil {
		p.calls = map[string]int{}
	}

	p.calls[key]++
}

// Calls reports how often script was evaluated.
func (p *Page) Calls(script string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls[script]
}

func (p *Page) Navigated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.navigated...)
}

func (p *Page) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.reloads
}

func (p *Page) Scrolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.scrolled
}

func (p *Page) Moves() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.moves
}

func (p *Page) Waited() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.waited
}

func (p *Page) Navigate(ctx context.Context, url string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.navigated = append(p.navigated, url)
	p.mu.Unlock()

	if p.NavigateErr != nil {
		return p.NavigateErr
	}

	if p.PageURL == "" {
		p.PageURL = url
	}

	return nil
}

func (p *Page) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.record(script)

	fn, ok := p.Scripts[script]
	if !ok {
		return nil, nil
	}

	return fn(arg)
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return p.Counts[selector], nil
}

func (p *Page) IsVisible(ctx context.Context, selector string, _ time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return p.Visible[selector], nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return p.HTML, p.ContentErr
}

func (p *Page) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return p.PageTitle, p.TitleErr
}

func (p *Page) URL() string {
	return p.PageURL
}

func (p *Page) ScrollBy(ctx context.Context, _ int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.scrolled++
	p.mu.Unlock()

	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()

	if p.OnReload != nil {
		p.OnReload(p)
	}

	return nil
}

func (p *Page) WaitForNetworkIdle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (p *Page) MoveMouse(ctx context.Context, _, _ float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.moves++
	p.mu.Unlock()

	return nil
}

func (p *Page) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.waited += d
	p.mu.Unlock()

	return nil
}
