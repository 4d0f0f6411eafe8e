package strategies

import (
	"context"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

// sourceAttrs are the attributes the probe reads from every <img>.
var sourceAttrs = []string{
	"data-zoom-image",
	"data-zoom-src",
	"data-high-res",
	"data-hires",
	"data-old-hires",
	"data-original",
	"data-full",
	"data-srcset",
	"srcset",
	"src",
	"data-src",
	"data-lazy",
	"alt",
}

// probeScript reports raw geometry, visibility and source attributes for the
// images and background images in the page. All decisions are made in Go.
const probeScript = `(opts) => {
	const scope = opts.scope ? document.querySelector(opts.scope) : document;
	const report = {
		viewportWidth: window.innerWidth,
		viewportHeight: window.innerHeight,
		baseURI: document.baseURI,
		items: [],
	};
	if (!scope) {
		return report;
	}

	if (scope !== document) {
		report.scopeId = scope.id || '';
		report.scopeClass = typeof scope.className === 'string' ? scope.className : '';
	}

	const roots = [scope];
	if (opts.shadow) {
		const visit = (root) => {
			const walker = document.createTreeWalker(root, NodeFilter.SHOW_ELEMENT);
			let node = walker.nextNode();
			while (node) {
				if (node.shadowRoot) {
					roots.push(node.shadowRoot);
					visit(node.shadowRoot);
				}
				node = walker.nextNode();
			}
		};
		visit(scope);
	}

	const identity = (el) => {
		const cls = typeof el.className === 'string' ? el.className : (el.getAttribute && el.getAttribute('class')) || '';
		return ((el.id || '') + ' ' + cls).trim();
	};
	const up = (el) => {
		if (el.parentElement) {
			return el.parentElement;
		}
		const root = el.getRootNode ? el.getRootNode() : null;
		return root && root.host ? root.host : null;
	};
	const ancestors = (el) => {
		const out = [];
		let p = up(el);
		while (p && p !== document.body && p !== document.documentElement) {
			out.push(identity(p));
			p = up(p);
		}
		return out;
	};
	const hidden = (el) => {
		const s = window.getComputedStyle(el);
		return s.display === 'none' || s.visibility === 'hidden' || s.opacity === '0';
	};
	const rectOf = (el) => {
		const r = el.getBoundingClientRect();
		return { top: r.top, left: r.left, bottom: r.bottom, width: r.width, height: r.height };
	};

	const seen = new Set();
	let index = 0;
	for (const root of roots) {
		if (opts.images) {
			for (const img of root.querySelectorAll(opts.imageSelector || 'img')) {
				if (report.items.length >= opts.limit) {
					return report;
				}
				if (seen.has(img)) {
					continue;
				}
				seen.add(img);
				const attrs = {};
				for (const name of opts.attrs) {
					const v = img.getAttribute(name);
					if (v) {
						attrs[name] = v;
					}
				}
				const link = img.closest('a');
				report.items.push({
					kind: 'img',
					index: index++,
					attrs: attrs,
					currentSrc: img.currentSrc || '',
					rect: rectOf(img),
					naturalWidth: img.naturalWidth || 0,
					naturalHeight: img.naturalHeight || 0,
					hidden: hidden(img),
					identity: identity(img),
					ancestors: ancestors(img),
					parentHref: link ? link.href : '',
					shadow: root !== scope,
				});
			}
		}
		if (opts.backgrounds) {
			for (const el of root.querySelectorAll(opts.backgroundSelector || '*')) {
				if (report.items.length >= opts.limit) {
					return report;
				}
				const bg = window.getComputedStyle(el).backgroundImage;
				if (!bg || bg === 'none' || bg.indexOf('url(') === -1) {
					continue;
				}
				report.items.push({
					kind: 'bg',
					index: index++,
					background: bg,
					rect: rectOf(el),
					hidden: hidden(el),
					identity: identity(el),
					ancestors: ancestors(el),
					shadow: root !== scope,
				});
			}
		}
	}
	return report;
}`

type probeOptions struct {
	Scope              string   `json:"scope,omitempty"`
	Shadow             bool     `json:"shadow"`
	Images             bool     `json:"images"`
	ImageSelector      string   `json:"imageSelector,omitempty"`
	Backgrounds        bool     `json:"backgrounds"`
	BackgroundSelector string   `json:"backgroundSelector,omitempty"`
	Attrs              []string `json:"attrs"`
	Limit              int      `json:"limit"`
}

type rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r rect) area() float64 {
	return r.Width * r.Height
}

func (r rect) centerX() float64 {
	return r.Left + r.Width/2
}

const (
	kindImage      = "img"
	kindBackground = "bg"
)

// elementProbe is the raw description of one element.
type elementProbe struct {
	Kind          string            `json:"kind"`
	Index         int               `json:"index"`
	Attrs         map[string]string `json:"attrs"`
	CurrentSrc    string            `json:"currentSrc"`
	Background    string            `json:"background"`
	Rect          rect              `json:"rect"`
	NaturalWidth  float64           `json:"naturalWidth"`
	NaturalHeight float64           `json:"naturalHeight"`
	Hidden        bool              `json:"hidden"`
	Identity      string            `json:"identity"`
	Ancestors     []string          `json:"ancestors"`
	ParentHref    string            `json:"parentHref"`
	Shadow        bool              `json:"shadow"`
}

type probeReport struct {
	ViewportWidth  float64        `json:"viewportWidth"`
	ViewportHeight float64        `json:"viewportHeight"`
	BaseURI        string         `json:"baseURI"`
	ScopeID        string         `json:"scopeId"`
	ScopeClass     string         `json:"scopeClass"`
	Items          []elementProbe `json:"items"`
}

func runProbe(ctx context.Context, page pageinspect.Page, opts probeOptions, limit int) (probeReport, error) {
	if opts.Attrs == nil {
		opts.Attrs = sourceAttrs
	}

	opts.Limit = limit
	if opts.Limit <= 0 {
		opts.Limit = DefaultThresholds().ProbeLimit
	}

	var report probeReport

	if err := pageinspect.EvaluateInto(ctx, page, probeScript, opts, &report); err != nil {
		return probeReport{}, err
	}

	if report.BaseURI == "" {
		report.BaseURI = page.URL()
	}

	return report, nil
}
