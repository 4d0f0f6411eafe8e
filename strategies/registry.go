package strategies

import (
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/normalize"
)

// Default returns the full strategy set. Order does not matter; the cascade
// sorts by priority.
func Default(th Thresholds) []Strategy {
	shared := normalize.New()

	return []Strategy{
		NewElite(th, normalize.Strict()),
		NewEcommerce(shared),
		NewShopify(shared),
		NewStructural(th),
		NewContextAnchored(th),
		NewVisual(th),
		NewBackgroundGrid(th, shared),
	}
}
