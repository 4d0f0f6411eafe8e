package pageinspect_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect/pageinspecttest"
)

type probe struct {
	Src   string  `json:"src"`
	Width float64 `json:"w"`
}

func TestEvaluateInto(t *testing.T) {
	page := pageinspecttest.New("https://shop.example.com/p/1")
	page.Returns("probe", []any{
		map[string]any{"src": "https://cdn.example.com/a.jpg", "w": 640},
		map[string]any{"src": "https://cdn.example.com/b.jpg", "w": 320.5},
	})

	var got []probe

	err := pageinspect.EvaluateInto(context.Background(), page, "probe", nil, &got)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://cdn.example.com/a.jpg", got[0].Src)
	assert.InDelta(t, 320.5, got[1].Width, 0.001)
	assert.Equal(t, 1, page.Calls("probe"))
}

func TestEvaluateIntoNilResult(t *testing.T) {
	page := pageinspecttest.New("https://shop.example.com/p/1")

	var got []probe

	err := pageinspect.EvaluateInto(context.Background(), page, "unknown", nil, &got)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEvaluateIntoPassesArgument(t *testing.T) {
	page := pageinspecttest.New("https://shop.example.com/p/1")
	page.Handle("echo", func(arg any) (any, error) {
		return arg, nil
	})

	var got map[string]int

	err := pageinspect.EvaluateInto(context.Background(), page, "echo", map[string]int{"minSize": 450}, &got)
	require.NoError(t, err)
	assert.Equal(t, 450, got["minSize"])
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := pageinspect.Sleep(ctx, time.Minute)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
