// Package installplaywright downloads the playwright driver and browser.
package installplaywright

import (
	"context"
	"fmt"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/fetchers"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner"
)

type installer struct {
	browser string
}

func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeInstallPlaywright {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	browser := cfg.Browser
	if browser == "" {
		browser = fetchers.BrowserFirefox
	}

	return &installer{browser: browser}, nil
}

func (i *installer) Run(context.Context) error {
	return fetchers.Install(i.browser)
}

func (i *installer) Close(context.Context) error {
	return nil
}
