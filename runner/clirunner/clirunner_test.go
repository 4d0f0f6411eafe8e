package clirunner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

type stubScraper struct {
	res entities.Result
	err error
}

func (s stubScraper) Scrape(context.Context, string) (entities.Result, error) {
	return s.res, s.err
}

func builder(s entities.Scraper, built *bool, closed *bool) func() (entities.Scraper, func() error, error) {
	return func() (entities.Scraper, func() error, error) {
		*built = true

		return s, func() error {
			*closed = true
			return nil
		}, nil
	}
}

func decode(t *testing.T, b *bytes.Buffer) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(b.Bytes(), &m))

	return m
}

func TestRunWritesResult(t *testing.T) {
	const target = "https://shop.example.com/p/1"

	res := entities.NewResult(target, entities.Outcome{
		StrategyUsed: "Agent 3 (Visual)",
		Images:       []string{"https://cdn.example.com/a.jpg?w=1&h=2"},
	})

	var (
		out           bytes.Buffer
		built, closed bool
	)

	r := newRunner(target, &out, nil, builder(stubScraper{res: res}, &built, &closed))

	require.NoError(t, r.Run(context.Background()))
	require.NoError(t, r.Close(context.Background()))

	assert.True(t, closed)
	assert.Contains(t, out.String(), "a.jpg?w=1&h=2")

	m := decode(t, &out)
	assert.Equal(t, target, m["source_url"])
	assert.Equal(t, "Agent 3 (Visual)", m["strategy_used"])
	assert.EqualValues(t, 1, m["total_images"])
}

func TestRunExhaustedIsSuccess(t *testing.T) {
	const target = "https://shop.example.com/p/1"

	res := entities.NewResult(target, entities.Outcome{StrategyUsed: entities.StrategyNone, Note: entities.NoteAllFailed})

	var (
		out           bytes.Buffer
		built, closed bool
	)

	r := newRunner(target, &out, nil, builder(stubScraper{res: res}, &built, &closed))
	require.NoError(t, r.Run(context.Background()))

	m := decode(t, &out)
	assert.Equal(t, []any{}, m["product_images"])
	assert.Equal(t, entities.NoteAllFailed, m["note"])
}

func TestRunErrorRecords(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		scrapeErr error
		code      string
		built     bool
	}{
		{"missing", "", nil, entities.CodeMissingArgument, false},
		{"invalid", "ftp://shop.example.com/p/1", nil, entities.CodeInvalidURL, false},
		{"crash", "https://shop.example.com/p/1", errors.New("browser has been closed"), entities.CodeScraperCrash, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				out           bytes.Buffer
				built, closed bool
			)

			r := newRunner(tt.url, &out, nil, builder(stubScraper{err: tt.scrapeErr}, &built, &closed))

			err := r.Run(context.Background())
			require.ErrorIs(t, err, ErrFailed)
			assert.Equal(t, tt.built, built)

			m := decode(t, &out)
			assert.Equal(t, tt.code, m["error_code"])
			assert.NotEmpty(t, m["message"])
		})
	}
}

func TestRunCancelledWritesNothing(t *testing.T) {
	var (
		out           bytes.Buffer
		built, closed bool
	)

	r := newRunner("https://shop.example.com/p/1", &out, nil, builder(stubScraper{err: context.Canceled}, &built, &closed))

	require.ErrorIs(t, r.Run(context.Background()), context.Canceled)
	assert.Zero(t, out.Len())
}

type panickingScraper struct{}

func (panickingScraper) Scrape(context.Context, string) (entities.Result, error) {
	panic("browser driver died")
}

func TestRunPanicWritesCrashRecord(t *testing.T) {
	var (
		out           bytes.Buffer
		built, closed bool
	)

	r := newRunner("https://shop.example.com/p/1", &out, nil, builder(panickingScraper{}, &built, &closed))

	var err error

	require.NotPanics(t, func() { err = r.Run(context.Background()) })
	require.ErrorIs(t, err, ErrFailed)

	m := decode(t, &out)
	assert.Equal(t, entities.CodeScraperCrash, m["error_code"])
	assert.Equal(t, "browser driver died", m["message"])

	require.NoError(t, r.Close(context.Background()))
	assert.True(t, closed)
}
