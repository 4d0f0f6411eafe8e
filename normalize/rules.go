package normalize

import (
	"regexp"
	"strings"
)

// Rule is one row of the platform rewrite table. Match receives the lowercased
// host and the lowercased url. Every matching rule fires, in table order.
type Rule struct {
	Name      string
	Match     func(host, lowerURL string) bool
	Transform func(u string) string
}

var (
	amazonTokenRe   = regexp.MustCompile(`\._[A-Za-z0-9,_\-]+_\.([A-Za-z0-9]+)(\?|$)`)
	ebaySizeRe      = regexp.MustCompile(`s-l\d+\.`)
	flipkartSizeRe  = regexp.MustCompile(`/image/\d+/\d+/`)
	myntraSizeRe    = regexp.MustCompile(`h_\d+,q_\d+,w_\d+`)
	shopifySuffixRe = regexp.MustCompile(`_(\d+x\d*|x\d+|small|medium|large|grande|compact|crop_center)(@\dx)?(\.[A-Za-z0-9]+)`)
)

const widthTemplate = "_{width}x"

// FlipkartResolution is the edge length requested from Flipkart's image CDN.
const FlipkartResolution = "1664"

// DefaultRules returns the platform rewrite table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "amazon",
			Match: func(host, _ string) bool {
				return strings.Contains(host, "amazon") ||
					strings.HasPrefix(host, "m.media-") ||
					strings.HasPrefix(host, "images-na.ssl-images-")
			},
			Transform: func(u string) string {
				return amazonTokenRe.ReplaceAllString(u, ".$1$2")
			},
		},
		{
			Name: "ebay",
			Match: func(host, _ string) bool {
				return strings.Contains(host, "ebayimg.")
			},
			Transform: func(u string) string {
				return ebaySizeRe.ReplaceAllString(u, "s-l1600.")
			},
		},
		{
			Name: "flipkart",
			Match: func(host, _ string) bool {
				return strings.Contains(host, "flixcart.com")
			},
			Transform: func(u string) string {
				return flipkartSizeRe.ReplaceAllString(u, "/image/"+FlipkartResolution+"/"+FlipkartResolution+"/")
			},
		},
		{
			Name: "myntra",
			Match: func(host, _ string) bool {
				return strings.Contains(host, "myntassets.com")
			},
			Transform: func(u string) string {
				return myntraSizeRe.ReplaceAllString(u, "h_1440,q_90,w_1080")
			},
		},
		{
			// theme templates leave a width placeholder in the file name
			Name: "width-template",
			Match: func(_, lower string) bool {
				return strings.Contains(lower, widthTemplate)
			},
			Transform: func(u string) string {
				return strings.ReplaceAll(u, widthTemplate, "")
			},
		},
		{
			Name: "shopify",
			Match: func(host, lower string) bool {
				return strings.Contains(host, "cdn.shopify.com") || strings.Contains(lower, "/cdn/shop/")
			},
			Transform: func(u string) string {
				u = shopifySuffixRe.ReplaceAllString(u, "$3")

				return dropNumericParam(u, "v")
			},
		},
		{
			Name: "hm",
			Match: func(host, _ string) bool {
				return strings.Contains(host, "hm.com")
			},
			Transform: func(u string) string {
				return dropNumericParam(u, "imwidth")
			},
		},
		{
			Name: "zara",
			Match: func(host, _ string) bool {
				return strings.Contains(host, "zara.")
			},
			Transform: func(u string) string {
				return dropNumericParam(u, "w")
			},
		},
	}
}

var paramRes = map[string]*regexp.Regexp{}

func paramRe(name string) *regexp.Regexp {
	if re, ok := paramRes[name]; ok {
		return re
	}

	return regexp.MustCompile(`([?&])` + regexp.QuoteMeta(name) + `=\d+(&?)`)
}

func init() {
	for _, name := range []string{"v", "imwidth", "w"} {
		paramRes[name] = paramRe(name)
	}
}

// dropNumericParam removes name=<digits> from the query string and keeps the
// remaining separators valid.
func dropNumericParam(u, name string) string {
	re := paramRe(name)

	return re.ReplaceAllStringFunc(u, func(m string) string {
		sub := re.FindStringSubmatch(m)
		if sub[2] == "&" {
			return sub[1]
		}

		return ""
	})
}
