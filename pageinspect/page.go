// Package pageinspect defines the narrow view of a rendered browser page that
// the extraction cascade depends on.
package pageinspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNavigation = errors.New("navigation failed")
	ErrClosed     = errors.New("page closed")
)

// Page is a single loaded page. Implementations are not safe for concurrent
// use; the caller owns the page for the duration of a run.
//
// Scripts receive their data through arg and must never have values spliced
// into their source.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Evaluate(ctx context.Context, script string, arg any) (any, error)
	Count(ctx context.Context, selector string) (int, error)
	IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	Content(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	URL() string
	ScrollBy(ctx context.Context, dy int) error
	Reload(ctx context.Context) error
	WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error
	MoveMouse(ctx context.Context, x, y float64) error
	Wait(ctx context.Context, d time.Duration) error
}

// EvaluateInto evaluates script and decodes the returned value into dst.
// The browser hands back loosely typed maps and slices, so the value is
// round-tripped through JSON.
func EvaluateInto(ctx context.Context, p Page, script string, arg, dst any) error {
	raw, err := p.Evaluate(ctx, script, arg)
	if err != nil {
		return err
	}

	return decode(raw, dst)
}

func decode(raw, dst any) error {
	if raw == nil {
		return nil
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode script result: %w", err)
	}

	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode script result: %w", err)
	}

	return nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
