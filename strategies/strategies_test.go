package strategies

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect/pageinspecttest"
)

const shopURL = "https://shop.example.com/p/1"

func imgProbe(index int, src string, r rect) elementProbe {
	return elementProbe{
		Kind:  kindImage,
		Index: index,
		Attrs: map[string]string{"src": src},
		Rect:  r,
	}
}

func box(top, left, w, h float64) rect {
	return rect{Top: top, Left: left, Bottom: top + h, Width: w, Height: h}
}

func TestVisual(t *testing.T) {
	hero := imgProbe(0, "/img/hero.jpg", box(100, 660, 600, 600))
	hero.Identity = "main-image"

	side := imgProbe(1, "https://cdn.example.com/side.jpg", box(100, 100, 500, 500))
	small := imgProbe(2, "https://cdn.example.com/small.jpg", box(100, 900, 200, 200))

	related := imgProbe(3, "https://cdn.example.com/related.jpg", box(200, 660, 600, 600))
	related.Ancestors = []string{"carousel", "related-products grid"}

	below := imgProbe(4, "https://cdn.example.com/below.jpg", box(1600, 660, 600, 600))

	hidden := imgProbe(5, "https://cdn.example.com/hidden.jpg", box(100, 660, 600, 600))
	hidden.Hidden = true

	page := pageinspecttest.New(shopURL)
	page.Returns(probeScript, probeReport{
		ViewportWidth: 1920,
		BaseURI:       shopURL,
		Items:         []elementProbe{side, hero, small, related, below, hidden},
	})

	s := NewVisual(DefaultThresholds())

	res, err := s.Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://shop.example.com/img/hero.jpg",
		"https://cdn.example.com/side.jpg",
	}, res.URLs())
	assert.Equal(t, "Visual: Found 2 large images in top viewport.", res.Note)
	assert.Equal(t, LabelVisual, res.Label)
}

func TestVisualLimit(t *testing.T) {
	var items []elementProbe
	for i := 0; i < 8; i++ {
		items = append(items, imgProbe(i, "https://cdn.example.com/p"+string(rune('a'+i))+".jpg", box(0, 660, 500, 500)))
	}

	page := pageinspecttest.New(shopURL)
	page.Returns(probeScript, probeReport{ViewportWidth: 1920, BaseURI: shopURL, Items: items})

	res, err := NewVisual(DefaultThresholds()).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 5)
	assert.Equal(t, "https://cdn.example.com/pa.jpg", res.Candidates[0].URL, "ties keep encounter order")
}

func TestVisualNothingFound(t *testing.T) {
	page := pageinspecttest.New(shopURL)

	res, err := NewVisual(DefaultThresholds()).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, "Visual: No prominent images found in top fold.", res.Note)
}

func TestVisualProbeError(t *testing.T) {
	page := pageinspecttest.New(shopURL)
	page.Handle(probeScript, func(any) (any, error) {
		return nil, errors.New("execution context was destroyed")
	})

	res, err := NewVisual(DefaultThresholds()).Extract(context.Background(), page, entities.PageContext{})
	require.Error(t, err)
	assert.Empty(t, res.Candidates)
}

func natural(p elementProbe, w, h float64) elementProbe {
	p.NaturalWidth = w
	p.NaturalHeight = h

	return p
}

func TestContextAnchored(t *testing.T) {
	page := pageinspecttest.New(shopURL)
	page.Returns(anchorScript, map[string]any{"top": 200, "text": "Classic Oxford Shirt in Blue"})

	near := natural(imgProbe(0, "https://cdn.example.com/near.jpg", box(250, 0, 500, 500)), 800, 800)
	above := natural(imgProbe(1, "https://cdn.example.com/above.jpg", box(150, 0, 500, 500)), 800, 800)
	far := natural(imgProbe(2, "https://cdn.example.com/far.jpg", box(900, 0, 500, 500)), 800, 800)
	tooFar := natural(imgProbe(3, "https://cdn.example.com/toofar.jpg", box(2300, 0, 500, 500)), 800, 800)
	tiny := natural(imgProbe(4, "https://cdn.example.com/tiny.jpg", box(210, 0, 500, 500)), 300, 800)

	similar := natural(imgProbe(5, "https://cdn.example.com/similar.jpg", box(205, 0, 500, 500)), 800, 800)
	similar.Ancestors = []string{"similar-products"}

	page.Returns(probeScript, probeReport{
		ViewportWidth: 1920,
		BaseURI:       shopURL,
		Items:         []elementProbe{far, near, above, tooFar, tiny, similar},
	})

	res, err := NewContextAnchored(DefaultThresholds()).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.example.com/near.jpg",
		"https://cdn.example.com/above.jpg",
		"https://cdn.example.com/far.jpg",
	}, res.URLs())
	assert.Equal(t, "Context: Found 3 images near title 'Classic Oxford Shirt...'", res.Note)
}

func TestContextWithoutAnchor(t *testing.T) {
	page := pageinspecttest.New(shopURL)

	res, err := NewContextAnchored(DefaultThresholds()).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, "Context: No Product Title found to anchor search.", res.Note)
	assert.Zero(t, page.Calls(probeScript))
}

func TestEliteScoresImagesAndBackgrounds(t *testing.T) {
	main := natural(imgProbe(0, "https://cdn.example.com/product-main.jpg", box(100, 660, 600, 600)), 1200, 1200)
	main.Identity = "product-main"

	bg := elementProbe{
		Kind:       kindBackground,
		Index:      1,
		Background: `url("https://cdn.example.com/look-bg.jpg")`,
		Rect:       box(50, 460, 1000, 700),
	}

	shadow := natural(imgProbe(2, "https://cdn.example.com/shadow.jpg", box(100, 0, 500, 500)), 1000, 1000)
	shadow.Shadow = true

	logo := natural(imgProbe(3, "https://cdn.example.com/brand-logo.png", box(0, 660, 600, 600)), 1200, 1200)
	deep := natural(imgProbe(4, "https://cdn.example.com/deep.jpg", box(2500, 660, 600, 600)), 1200, 1200)
	thumb := natural(imgProbe(5, "https://cdn.example.com/thumb.jpg", box(100, 660, 100, 100)), 100, 100)

	page := pageinspecttest.New(shopURL)
	page.Returns(probeScript, probeReport{
		ViewportWidth: 1920,
		BaseURI:       shopURL,
		Items:         []elementProbe{bg, shadow, main, logo, deep, thumb},
	})

	s := NewElite(DefaultThresholds(), nil)
	assert.True(t, s.SelfValidating())

	res, err := s.Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.example.com/product-main.jpg",
		"https://cdn.example.com/look-bg.jpg",
		"https://cdn.example.com/shadow.jpg",
	}, res.URLs())
	assert.Equal(t, LabelElite, res.Note)
}

func TestEliteKeepsSignedURLs(t *testing.T) {
	signed := "https://m.media-amazon.com/images/I/71abc._AC_SY879_.jpg?X-Amz-Signature=abc"
	p := natural(imgProbe(0, signed, box(100, 660, 600, 600)), 1200, 1200)

	page := pageinspecttest.New(shopURL)
	page.Returns(probeScript, probeReport{ViewportWidth: 1920, BaseURI: shopURL, Items: []elementProbe{p}})

	res, err := NewElite(DefaultThresholds(), nil).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{signed}, res.URLs())
}

func TestStructuralAjioRescue(t *testing.T) {
	page := pageinspecttest.New("https://www.ajio.com/shirt/p/469566")
	page.HTML = `<html><body>
		<img src="https://assets.ajio.com/medias/root/20230901/abc/shirt-473Wx593H-469566-1.jpg">
		<div data-src="https://assets.ajio.com/medias/root/20230901/abc/shirt-1117Wx1400H-469566-1.jpg"></div>
		<div data-src="https://assets.ajio.com/medias/root/20230901/abc/shirt-1117Wx1400H-469566-1.jpg"></div>
		<div data-src="https://assets.ajio.com/medias/root/20230901/abc/shirt-1117Wx1400H-469566-2.webp"></div>
		<div data-src="https://assets.ajio.com/medias/root/SWATCH-1117Wx1400H-469566.jpg"></div>
	</body></html>`

	res, err := NewStructural(DefaultThresholds()).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://assets.ajio.com/medias/root/20230901/abc/shirt-1117Wx1400H-469566-1.jpg",
		"https://assets.ajio.com/medias/root/20230901/abc/shirt-1117Wx1400H-469566-2.webp",
	}, res.URLs())
	assert.Equal(t, "Structural: AJIO High-Res Regex", res.Note)
}

func TestStructuralGalleryContainer(t *testing.T) {
	page := pageinspecttest.New(shopURL)
	page.Visible[".product-gallery"] = true
	page.Counts[".product-gallery img"] = 3

	big := natural(imgProbe(0, "/media/front.jpg", box(0, 0, 400, 400)), 800, 800)
	big.Attrs["data-zoom-src"] = "/media/front-zoom.jpg"

	linked := natural(imgProbe(1, "/media/back-thumb.jpg", box(0, 0, 400, 400)), 800, 800)
	linked.ParentHref = "https://shop.example.com/media/back-full.jpg"

	small := natural(imgProbe(2, "/media/icon.jpg", box(0, 0, 40, 40)), 40, 40)

	related := natural(imgProbe(3, "/media/other.jpg", box(0, 0, 400, 400)), 800, 800)
	related.Ancestors = []string{"related-products"}

	var scopes []string

	page.Handle(probeScript, func(arg any) (any, error) {
		opts := arg.(probeOptions)
		scopes = append(scopes, opts.Scope)

		return probeReport{
			BaseURI: shopURL,
			ScopeID: "pdp",
			Items:   []elementProbe{big, linked, small, related},
		}, nil
	})

	res, err := NewStructural(DefaultThresholds()).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://shop.example.com/media/front-zoom.jpg",
		"https://shop.example.com/media/back-full.jpg",
	}, res.URLs())
	assert.Equal(t, "Structural: .product-gallery", res.Note)
	assert.Equal(t, []string{".product-gallery"}, scopes)
}

func TestStructuralGalleryLibraryIsExempt(t *testing.T) {
	page := pageinspecttest.New(shopURL)
	page.Visible[".slick-track"] = true
	page.Counts[".slick-track img"] = 1

	lazy := imgProbe(0, "https://cdn.example.com/lazy.jpg", box(0, 0, 0, 0))

	page.Returns(probeScript, probeReport{
		BaseURI:    shopURL,
		ScopeClass: "slick-track carousel",
		Items:      []elementProbe{lazy},
	})

	res, err := NewStructural(DefaultThresholds()).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/lazy.jpg"}, res.URLs())
}

func TestStructuralNoContainer(t *testing.T) {
	page := pageinspecttest.New(shopURL)

	res, err := NewStructural(DefaultThresholds()).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, "No explicit gallery container found.", res.Note)
	assert.Zero(t, page.Calls(probeScript))
}

func TestEcommerceApplies(t *testing.T) {
	s := NewEcommerce(nil)

	assert.True(t, s.Applies("https://www.amazon.in/dp/B0"))
	assert.True(t, s.Applies("https://www.EBAY.com/itm/1"))
	assert.True(t, s.Applies("https://www.flipkart.com/p/itm1"))
	assert.False(t, s.Applies("https://www.myntra.com/shirts/1"))
}

func TestEcommerceAmazon(t *testing.T) {
	page := pageinspecttest.New("https://www.amazon.com/dp/B0TEST")
	page.Returns(amazonScript, amazonImages{
		Hires: []string{"https://m.media-amazon.com/images/I/71main._AC_SL1500_.jpg"},
		Dynamic: []string{
			`{"https://m.media-amazon.com/images/I/71main._AC_SX300_.jpg":[300,300],` +
				`"https://m.media-amazon.com/images/I/71zoom._AC_SX679_.jpg":[679,679]}`,
		},
		Thumbs: []string{
			"data:image/gif;base64,R0lGODlhAQABAAAAACw=",
			"https://m.media-amazon.com/images/I/41alt._AC_US40_.jpg",
		},
	})

	res, err := NewEcommerce(nil).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://m.media-amazon.com/images/I/71main.jpg",
		"https://m.media-amazon.com/images/I/71zoom.jpg",
		"https://m.media-amazon.com/images/I/41alt.jpg",
	}, res.URLs())
	assert.Equal(t, "Agent 5 (Amazon Specialist)", res.Note)
}

func TestEcommerceEbay(t *testing.T) {
	page := pageinspecttest.New("https://www.ebay.com/itm/1234")
	page.Returns(ebayScript, []string{
		"https://i.ebayimg.com/images/g/a/s-l500.jpg",
		"https://i.ebayimg.com/images/g/a/s-l64.jpg",
		"https://i.ebayimg.com/images/g/b/s-l300.webp",
		"https://i.ebayimg.com/images/g/a/s-l1600.jpg",
	})

	res, err := NewEcommerce(nil).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://i.ebayimg.com/images/g/a/s-l1600.jpg",
		"https://i.ebayimg.com/images/g/b/s-l1600.webp",
	}, res.URLs())
	assert.Equal(t, "Agent 5 (eBay Specialist)", res.Note)
}

func TestEcommerceFlipkart(t *testing.T) {
	page := pageinspecttest.New("https://www.flipkart.com/phone/p/itm1")
	page.Returns(attrListScript, []string{
		"data:image/svg+xml;base64,PHN2Zz4=",
		"https://rukminim2.flixcart.com/image/128/128/xif0q/mobile/a.jpeg?q=70",
		" DATA:image/png;base64,AAAA",
	})

	res, err := NewEcommerce(nil).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://rukminim2.flixcart.com/image/1664/1664/xif0q/mobile/a.jpeg?q=70",
	}, res.URLs())
}

func TestParseDynamicImage(t *testing.T) {
	got := parseDynamicImage(`{"a.jpg":[100,100],"b.jpg":[500,400],"c.jpg":[300,300]}`)
	assert.Equal(t, []string{"b.jpg", "c.jpg", "a.jpg"}, got)

	assert.Nil(t, parseDynamicImage(`{not json`))
}

const shopifyHTML = `<html><head>
<script src="https://cdn.shopify.com/s/shopify/app.js"></script>
<script type="application/json" id="config">{"currency":"USD"}</script>
<script type="application/json" id="ProductJson-main">{
	"title": "Linen Shirt",
	"images": [
		"//cdn.shopify.com/s/files/1/products/a_800x800.jpg?v=1",
		{"src": "//cdn.shopify.com/s/files/1/products/b.jpg"}
	],
	"media": [
		{"preview_image": {"src": "//cdn.shopify.com/s/files/1/products/c.jpg"}},
		{"src": "//cdn.shopify.com/s/files/1/products/a.jpg"}
	]
}</script>
</head><body></body></html>`

func TestShopifyPayloadImages(t *testing.T) {
	got, err := ShopifyPayloadImages(shopifyHTML)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"//cdn.shopify.com/s/files/1/products/a_800x800.jpg?v=1",
		"//cdn.shopify.com/s/files/1/products/b.jpg",
		"//cdn.shopify.com/s/files/1/products/c.jpg",
		"//cdn.shopify.com/s/files/1/products/a.jpg",
	}, got)
}

func TestShopifyJSON(t *testing.T) {
	page := pageinspecttest.New("https://store.example.com/products/linen-shirt")
	page.HTML = shopifyHTML

	res, err := NewShopify(nil).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.shopify.com/s/files/1/products/a.jpg",
		"https://cdn.shopify.com/s/files/1/products/b.jpg",
		"https://cdn.shopify.com/s/files/1/products/c.jpg",
	}, res.URLs())
	assert.Equal(t, "Agent 6 (Shopify JSON)", res.Note)
}

func TestShopifyDOMFallback(t *testing.T) {
	page := pageinspecttest.New("https://store.example.com/products/linen-shirt")
	page.HTML = `<html><body data-shop="linen.myshopify.com"></body></html>`
	page.Returns(shopifyDOMScript, []shopifyDOMImage{
		{Srcset: "//cdn.shopify.com/x_300x.jpg 300w, //cdn.shopify.com/x_1000x.jpg 1000w"},
		{Src: "https://cdn.shopify.com/y_small.png"},
	})

	res, err := NewShopify(nil).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.shopify.com/x.jpg",
		"https://cdn.shopify.com/y.png",
	}, res.URLs())
	assert.Equal(t, "Agent 6 (Shopify DOM)", res.Note)
}

func TestShopifyNotDetected(t *testing.T) {
	page := pageinspecttest.New(shopURL)
	page.HTML = `<html><body><img src="/a.jpg"></body></html>`

	res, err := NewShopify(nil).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Zero(t, page.Calls(shopifyDOMScript))
}

func TestBackgroundGridRetriesThenReloads(t *testing.T) {
	page := pageinspecttest.New("https://www.myntra.com/shirts/roadster/123/buy")

	tile := elementProbe{
		Kind:       kindBackground,
		Background: `url("https://assets.myntassets.com/h_720,q_90,w_540/v1/assets/images/123/1.jpg")`,
		Rect:       box(0, 0, 300, 400),
	}

	hidden := tile
	hidden.Background = `url("https://assets.myntassets.com/h_720,q_90,w_540/v1/assets/images/123/hidden.jpg")`
	hidden.Hidden = true

	collapsed := tile
	collapsed.Background = `url("https://assets.myntassets.com/h_720,q_90,w_540/v1/assets/images/123/collapsed.jpg")`
	collapsed.Rect = box(0, 0, 0, 400)

	page.Handle(probeScript, func(any) (any, error) {
		if page.Reloads() == 0 {
			return probeReport{}, nil
		}

		return probeReport{Items: []elementProbe{hidden, tile, collapsed, tile}}, nil
	})

	th := DefaultThresholds()
	s := NewBackgroundGrid(th, nil)

	require.True(t, s.Applies(page.PageURL))
	require.False(t, s.Applies(shopURL))

	res, err := s.Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://assets.myntassets.com/h_1440,q_90,w_1080/v1/assets/images/123/1.jpg",
	}, res.URLs())
	assert.Equal(t, "Agent 4 (Myntra Background)", res.Note)
	assert.Equal(t, th.GridScrollSteps, page.Scrolls())
	assert.Equal(t, 1, page.Reloads())
}

func TestBackgroundGridGivesUp(t *testing.T) {
	page := pageinspecttest.New("https://www.myntra.com/shirts/roadster/123/buy")

	res, err := NewBackgroundGrid(DefaultThresholds(), nil).Extract(context.Background(), page, entities.PageContext{})
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, "Myntra Agent found no background images.", res.Note)
	assert.Equal(t, 1, page.Reloads())
}

func TestBackgroundGridStopsOnCancel(t *testing.T) {
	page := pageinspecttest.New("https://www.myntra.com/shirts/roadster/123/buy")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBackgroundGrid(DefaultThresholds(), nil).Extract(ctx, page, entities.PageContext{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, page.Reloads())
}

func TestDefaultRegistryHasUniquePriorities(t *testing.T) {
	seen := map[int]string{}

	all := Default(DefaultThresholds())
	require.Len(t, all, 7)

	for _, s := range all {
		other, dup := seen[s.Priority()]
		require.False(t, dup, "%s and %s share a priority", s.Name(), other)

		seen[s.Priority()] = s.Name()
	}

	selfValidating := 0

	for _, s := range all {
		if s.SelfValidating() {
			selfValidating++

			assert.Equal(t, LabelElite, s.Name())
		}
	}

	assert.Equal(t, 1, selfValidating)
}

func TestShopifyCleanLeavesSignedURLs(t *testing.T) {
	signed := "https://cdn.shopify.com/s/files/1/products/shirt_{width}x.jpg?token=abc"

	got := NewShopify(nil).clean([]string{
		signed,
		"//cdn.shopify.com/s/files/1/products/pants_{width}x.jpg",
	})

	assert.Equal(t, []string{
		signed,
		"https://cdn.shopify.com/s/files/1/products/pants.jpg",
	}, got)
}
