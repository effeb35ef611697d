package feed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/heatmap"
)

type demoHub struct {
	name      string
	beaconID  string
	location  heatmap.Location
	baseRSSI  float64
	phase     float64
	amplitude float64
	active    bool
}

// DemoFeed generates readings from fake hubs scattered around a center.
type DemoFeed struct {
	mu       sync.Mutex
	rng      *rand.Rand
	hubs     []demoHub
	interval time.Duration
	now      func() time.Time
	cancel   context.CancelFunc
}

// NewDemoFeed places config.DemoHubCount hubs around center, each tracking
// one of beaconIDs. The seed makes the layout reproducible.
func NewDemoFeed(center heatmap.Location, beaconIDs []string, seed int64) *DemoFeed {
	rng := rand.New(rand.NewSource(seed))

	hubs := make([]demoHub, config.DemoHubCount)
	for i := range hubs {
		id := ""
		if len(beaconIDs) > 0 {
			id = beaconIDs[rng.Intn(len(beaconIDs))]
		}
		hubs[i] = demoHub{
			name:      fmt.Sprintf("HUB-%02d", i+1),
			beaconID:  id,
			location:  heatmap.Offset(center, rng.Float64()*360, rng.Float64()*config.DemoHubSpreadM),
			baseRSSI:  -40 - rng.Float64()*45, // -40 to -85 dBm
			phase:     rng.Float64() * 2 * math.Pi,
			amplitude: 3 + rng.Float64()*8, // 3-11 dBm fluctuation
			active:    true,
		}
	}

	return &DemoFeed{
		rng:      rng,
		hubs:     hubs,
		interval: config.FeedInterval,
		now:      time.Now,
	}
}

// Start begins emitting readings every interval until ctx is done or Stop
// is called.
func (f *DemoFeed) Start(ctx context.Context, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	go f.loop(ctx, sink)
	return nil
}

func (f *DemoFeed) loop(ctx context.Context, sink Sink) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	t := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t += f.interval.Seconds()
			for _, r := range f.emit(t) {
				sink(r)
			}
		}
	}
}

// emit returns one reading per active hub at time t (seconds).
func (f *DemoFeed) emit(t float64) []heatmap.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()

	at := f.now()
	out := make([]heatmap.Reading, 0, len(f.hubs))
	for i := range f.hubs {
		h := &f.hubs[i]

		// Hubs occasionally drop out and come back
		if f.rng.Float64() < 0.005 {
			h.active = !h.active
		}
		if !h.active {
			continue
		}

		// Sinusoidal RSSI fluctuation + noise
		rssi := h.baseRSSI + h.amplitude*math.Sin(t*0.5+h.phase) + (f.rng.Float64()-0.5)*4

		out = append(out, heatmap.Reading{
			Location: h.location,
			RSSI:     math.Round(rssi),
			BeaconID: h.beaconID,
			Source:   h.name,
			At:       at,
		})
	}
	return out
}

// Stop halts the feed.
func (f *DemoFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
}
