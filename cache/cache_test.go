package cache_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/cache"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

type memStore struct {
	data   map[string]entities.Result
	getErr error
	sets   int
}

func newMemStore() *memStore {
	return &memStore{data: map[string]entities.Result{}}
}

func (m *memStore) Get(_ context.Context, url string) (entities.Result, bool, error) {
	if m.getErr != nil {
		return entities.Result{}, false, m.getErr
	}

	r, ok := m.data[url]

	return r, ok, nil
}

func (m *memStore) Set(_ context.Context, url string, r entities.Result) error {
	m.sets++
	m.data[url] = r

	return nil
}

type countingScraper struct {
	res   entities.Result
	err   error
	calls int
}

func (c *countingScraper) Scrape(context.Context, string) (entities.Result, error) {
	c.calls++

	return c.res, c.err
}

const productURL = "https://shop.example.com/p/1"

func found() entities.Result {
	return entities.NewResult(productURL, entities.Outcome{
		StrategyUsed: "Agent 3 (Visual)",
		Images:       []string{"https://cdn.example.com/a.jpg"},
	})
}

func TestScraperCachesHits(t *testing.T) {
	next := &countingScraper{res: found()}
	store := newMemStore()
	s := cache.Wrap(next, store, nil)

	first, err := s.Scrape(context.Background(), productURL)
	require.NoError(t, err)

	second, err := s.Scrape(context.Background(), productURL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, store.sets)
}

func TestScraperSkipsEmptyResults(t *testing.T) {
	next := &countingScraper{res: entities.NewResult(productURL, entities.Outcome{
		StrategyUsed: entities.StrategyNone,
		Note:         entities.NoteAllFailed,
	})}
	store := newMemStore()
	s := cache.Wrap(next, store, nil)

	_, err := s.Scrape(context.Background(), productURL)
	require.NoError(t, err)
	_, err = s.Scrape(context.Background(), productURL)
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
	assert.Zero(t, store.sets)
}

func TestScraperFallsThroughOnCacheError(t *testing.T) {
	next := &countingScraper{res: found()}
	store := newMemStore()
	store.getErr = errors.New("connection refused")

	res, err := cache.Wrap(next, store, nil).Scrape(context.Background(), productURL)
	require.NoError(t, err)
	assert.Equal(t, found(), res)
	assert.Equal(t, 1, next.calls)
}

func TestScraperPropagatesErrors(t *testing.T) {
	next := &countingScraper{err: context.DeadlineExceeded}
	store := newMemStore()

	_, err := cache.Wrap(next, store, nil).Scrape(context.Background(), productURL)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, store.sets)
}

func TestKey(t *testing.T) {
	k := cache.Key(productURL)
	assert.True(t, strings.HasPrefix(k, "product-images:result:"))
	assert.Equal(t, k, cache.Key(productURL))
	assert.NotEqual(t, k, cache.Key(productURL+"?v=2"))
}
