// Package goposthog sends telemetry events to PostHog.
package goposthog

import (
	"context"
	"errors"

	"github.com/posthog/posthog-go"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/tlmt"
)

const DefaultEndpoint = "https://eu.i.posthog.com"

var ErrMissingAPIKey = errors.New("posthog api key is required")

type service struct {
	client posthog.Client
}

func New(apiKey, endpointURL string) (tlmt.Telemetry, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if endpointURL == "" {
		endpointURL = DefaultEndpoint
	}

	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpointURL})
	if err != nil {
		return nil, err
	}

	return &service{client: client}, nil
}

func (s *service) Send(ctx context.Context, event tlmt.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	capture := posthog.Capture{
		DistinctId: event.AnonymousID,
		Event:      event.Name,
		Properties: posthog.Properties(event.Properties),
	}

	if err := capture.Validate(); err != nil {
		return err
	}

	return s.client.Enqueue(capture)
}

func (s *service) Close() error {
	if s.client == nil {
		return nil
	}

	return s.client.Close()
}
