package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

func TestPickFromSrcset(t *testing.T) {
	tests := []struct {
		name     string
		srcset   string
		expected string
	}{
		{name: "empty", srcset: "", expected: ""},
		{name: "width descriptors", srcset: "a.jpg 300w, b.jpg 1200w, c.jpg 600w", expected: "b.jpg"},
		{name: "compact separators", srcset: "a.jpg 300w,b.jpg 900w", expected: "b.jpg"},
		{name: "density descriptors", srcset: "a.jpg 1x, b.jpg 2x", expected: "b.jpg"},
		{name: "no descriptors keeps last", srcset: "a.jpg, b.jpg", expected: "b.jpg"},
		{
			name:     "commas inside url",
			srcset:   "https://res.example.com/w_300,h_300/p.jpg 300w, https://res.example.com/w_900,h_900/p.jpg 900w",
			expected: "https://res.example.com/w_900,h_900/p.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pickFromSrcset(tt.srcset))
		})
	}
}

func TestBackgroundURL(t *testing.T) {
	assert.Equal(t, "https://a.example.com/p.jpg", backgroundURL(`url("https://a.example.com/p.jpg")`))
	assert.Equal(t, "https://a.example.com/p.jpg", backgroundURL(`url('https://a.example.com/p.jpg'), linear-gradient(red, blue)`))
	assert.Equal(t, "/img/p.jpg", backgroundURL(`url(/img/p.jpg)`))
	assert.Empty(t, backgroundURL("linear-gradient(red, blue)"))
	assert.Empty(t, backgroundURL("none"))
}

func TestBestSourceChain(t *testing.T) {
	tests := []struct {
		name     string
		probe    elementProbe
		expected string
	}{
		{
			name: "zoom attribute wins",
			probe: elementProbe{
				Attrs:      map[string]string{"data-zoom-image": "zoom.jpg", "srcset": "big.jpg 2000w", "src": "src.jpg"},
				CurrentSrc: "current.jpg",
			},
			expected: "zoom.jpg",
		},
		{
			name: "srcset before currentSrc",
			probe: elementProbe{
				Attrs:      map[string]string{"srcset": "s.jpg 300w, big.jpg 2000w", "src": "src.jpg"},
				CurrentSrc: "current.jpg",
			},
			expected: "big.jpg",
		},
		{
			name:     "currentSrc before src",
			probe:    elementProbe{Attrs: map[string]string{"src": "src.jpg"}, CurrentSrc: "current.jpg"},
			expected: "current.jpg",
		},
		{
			name:     "lazy placeholder skipped",
			probe:    elementProbe{Attrs: map[string]string{"src": "data:image/gif;base64,R0lGOD", "data-src": "real.jpg"}},
			expected: "real.jpg",
		},
		{
			name:     "nothing usable",
			probe:    elementProbe{Attrs: map[string]string{}},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, bestSource(tt.probe))
		})
	}
}

func TestProminenceMonotonic(t *testing.T) {
	const vw = 1920

	small := rect{Left: 760, Width: 400, Height: 400}
	large := rect{Left: 660, Width: 600, Height: 600}
	assert.Greater(t, prominence(large, vw), prominence(small, vw), "same center, larger area")

	centered := rect{Left: 760, Width: 400, Height: 400}
	offset := rect{Left: 100, Width: 400, Height: 400}
	assert.Greater(t, prominence(centered, vw), prominence(offset, vw), "same area, closer to center")
}

func TestRankStableAndDeduped(t *testing.T) {
	items := []scored{
		{Candidate: entities.Candidate{URL: "b"}, index: 1, key: 5},
		{Candidate: entities.Candidate{URL: "a"}, index: 0, key: 5},
		{Candidate: entities.Candidate{URL: "c"}, index: 2, key: 9},
		{Candidate: entities.Candidate{URL: "a"}, index: 3, key: 1},
	}

	got := rank(items, false, 0)
	assert.Equal(t, []string{"c", "a", "b"}, candidateURLs(got))

	got = rank(items, true, 2)
	assert.Len(t, got, 2)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "https://shop.example.com/img/p.jpg", resolve("https://shop.example.com/p/1", "/img/p.jpg"))
	assert.Equal(t, "https://cdn.example.com/p.jpg", resolve("https://shop.example.com/p/1", "https://cdn.example.com/p.jpg"))
	assert.Equal(t, "/img/p.jpg", resolve("", "/img/p.jpg"))
}
