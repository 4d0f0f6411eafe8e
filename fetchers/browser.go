// Package fetchers launches the browsers scrapes run in.
package fetchers

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

const (
	BrowserFirefox  = "firefox"
	BrowserChromium = "chromium"
)

var ErrUnknownBrowser = errors.New("unknown browser")

type Options struct {
	// Browser is firefox or chromium. Headless Firefox gets through edge
	// firewalls that reject headless Chromium.
	Browser  string
	Headless bool
	Proxies  []string
	// PoolSize is the number of idle browsers kept for reuse.
	PoolSize int
}

func (o Options) browserName() string {
	if o.Browser == "" {
		return BrowserFirefox
	}

	return o.Browser
}

// Install downloads the playwright driver and the named browsers.
func Install(browsers ...string) error {
	if len(browsers) == 0 {
		browsers = []string{BrowserFirefox}
	}

	return playwright.Install(&playwright.RunOptions{Browsers: browsers})
}

// Pool hands out browsers and keeps a few idle ones around between scrapes.
type Pool struct {
	opts    Options
	pool    chan *browser
	proxies *roundRobin
}

func New(opts Options) (*Pool, error) {
	switch opts.browserName() {
	case BrowserFirefox, BrowserChromium:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBrowser, opts.Browser)
	}

	if opts.PoolSize <= 0 {
		opts.PoolSize = 1
	}

	ans := Pool{
		opts:    opts,
		pool:    make(chan *browser, opts.PoolSize),
		proxies: newRoundRobin(opts.Proxies),
	}

	return &ans, nil
}

func (o *Pool) getBrowser(ctx context.Context) (*browser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ans := <-o.pool:
		return ans, nil
	default:
		return newBrowser(o.opts.browserName(), o.opts.Headless, o.proxies.next())
	}
}

func (o *Pool) putBrowser(ctx context.Context, b *browser) {
	select {
	case <-ctx.Done():
		b.Close()
	case o.pool <- b:
	default:
		b.Close()
	}
}

// WithPage runs fn against a fresh page. The page is closed when fn returns;
// the browser goes back to the pool unless fn reported it broken.
func (o *Pool) WithPage(ctx context.Context, fn func(context.Context, pageinspect.Page) error) error {
	b, err := o.getBrowser(ctx)
	if err != nil {
		return err
	}

	for _, p := range b.ctx.Pages() {
		_ = p.Close()
	}

	page, err := b.ctx.NewPage()
	if err != nil {
		b.Close()

		return fmt.Errorf("new page: %w", err)
	}

	err = fn(ctx, pageinspect.FromPlaywright(page))

	_ = page.Close()

	if errors.Is(err, pageinspect.ErrClosed) {
		b.Close()

		return err
	}

	o.putBrowser(ctx, b)

	return err
}

// Close shuts down every idle browser.
func (o *Pool) Close() {
	for {
		select {
		case b := <-o.pool:
			b.Close()
		default:
			return
		}
	}
}

type browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
}

func (o *browser) Close() {
	_ = o.ctx.Close()
	_ = o.browser.Close()
	_ = o.pw.Stop()
}

func newBrowser(name string, headless bool, proxy string) (*browser, error) {
	pw, err := playwright.Run(&playwright.RunOptions{Browsers: []string{name}})
	if err != nil {
		return nil, err
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	}

	launcher := pw.Firefox
	if name == BrowserChromium {
		launcher = pw.Chromium
		opts.Args = []string{
			`--start-maximized`,
			`--no-default-browser-check`,
		}
	}

	br, err := launcher.Launch(opts)
	if err != nil {
		_ = pw.Stop()

		return nil, err
	}

	const defaultWidth, defaultHeight = 1920, 1080

	bctx, err := br.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  defaultWidth,
			Height: defaultHeight,
		},
		Proxy: toPWProxy(proxy),
	})
	if err != nil {
		_ = br.Close()
		_ = pw.Stop()

		return nil, err
	}

	ans := browser{
		pw:      pw,
		browser: br,
		ctx:     bctx,
	}

	return &ans, nil
}
