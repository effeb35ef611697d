// Package feed produces RSSI readings for the heatmap: a demo generator
// and a live BLE scanner.
package feed

import (
	"context"

	"rssi-heatmap.klederson.com/internal/heatmap"
)

// Sink receives readings. It is called from the source's goroutine.
type Sink func(heatmap.Reading)

// Source is a stream of readings.
type Source interface {
	Start(ctx context.Context, sink Sink) error
	Stop()
}
