// Package gonoop is the telemetry backend used when telemetry is disabled.
package gonoop

import (
	"context"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/tlmt"
)

var _ tlmt.Telemetry = service{}

type service struct{}

func New() tlmt.Telemetry {
	return service{}
}

func (service) Send(context.Context, tlmt.Event) error { return nil }

func (service) Close() error { return nil }
