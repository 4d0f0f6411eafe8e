package cascade

import (
	"context"
	"fmt"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

const pageContextScript = `() => {
	const h1 = document.querySelector('h1');
	return {
		title: document.title || '',
		heading: h1 ? (h1.innerText || '').trim() : '',
		url: location.href,
	};
}`

type pageSnapshot struct {
	Title   string `json:"title"`
	Heading string `json:"heading"`
	URL     string `json:"url"`
}

// ExtractPageContext reads the title, first heading and current url of page.
func ExtractPageContext(ctx context.Context, page pageinspect.Page) (entities.PageContext, error) {
	pctx := entities.PageContext{PageURL: page.URL()}

	var snap pageSnapshot

	if err := pageinspect.EvaluateInto(ctx, page, pageContextScript, nil, &snap); err != nil {
		return pctx, fmt.Errorf("page context: %w", err)
	}

	pctx.Title = snap.Title
	pctx.HeadingText = snap.Heading

	if snap.URL != "" {
		pctx.PageURL = snap.URL
	}

	return pctx, nil
}
