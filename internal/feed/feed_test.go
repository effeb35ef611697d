package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/heatmap"
)

var center = heatmap.Location{Lat: config.CenterLat, Lng: config.CenterLng}

func TestDemoFeed_Layout(t *testing.T) {
	ids := config.DefaultCatalog().IDs()
	f := NewDemoFeed(center, ids, 1)
	require.Len(t, f.hubs, config.DemoHubCount)

	for _, h := range f.hubs {
		assert.Contains(t, ids, h.beaconID)
		assert.LessOrEqual(t, heatmap.Distance(center, h.location), config.DemoHubSpreadM+0.01)
		assert.GreaterOrEqual(t, h.baseRSSI, -85.0)
		assert.LessOrEqual(t, h.baseRSSI, -40.0)
	}

	// Same seed, same layout
	g := NewDemoFeed(center, ids, 1)
	assert.Equal(t, f.hubs, g.hubs)
}

func TestDemoFeed_Emit(t *testing.T) {
	f := NewDemoFeed(center, []string{"GO_500"}, 7)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	for i := range f.hubs {
		f.hubs[i].active = true
	}
	readings := f.emit(1)
	assert.GreaterOrEqual(t, len(readings), config.DemoHubCount-1)

	for _, r := range readings {
		assert.Equal(t, "GO_500", r.BeaconID)
		assert.Equal(t, fixed, r.At)
		assert.NotEmpty(t, r.Source)
		assert.GreaterOrEqual(t, r.RSSI, -100.0)
		assert.LessOrEqual(t, r.RSSI, -25.0)
	}
}

func TestDemoFeed_StartStop(t *testing.T) {
	f := NewDemoFeed(center, []string{"BOX"}, 3)
	f.interval = 5 * time.Millisecond

	var mu sync.Mutex
	var got []heatmap.Reading
	require.NoError(t, f.Start(context.Background(), func(r heatmap.Reading) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, time.Second, 5*time.Millisecond)
	f.Stop()
}

func TestDemoFeed_ContextCancel(t *testing.T) {
	f := NewDemoFeed(center, nil, 3)
	f.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.loop(ctx, func(heatmap.Reading) {})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}

func TestBLEScanner_Accept(t *testing.T) {
	loc := heatmap.Location{Lat: 48.1, Lng: 8.3}
	s := NewBLEScanner(loc, map[string]string{"aa-bb-cc-dd-ee-ff": "COIN_250"})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, ok := s.accept("AA:BB:CC:DD:EE:FF", -61, now)
	assert.False(t, ok, "not running")

	s.running = true

	r, ok := s.accept("aa:bb:cc:dd:ee:ff", -61, now)
	require.True(t, ok)
	assert.Equal(t, "COIN_250", r.BeaconID)
	assert.Equal(t, -61.0, r.RSSI)
	assert.Equal(t, loc, r.Location)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", r.Source)

	_, ok = s.accept("AA:BB:CC:DD:EE:FF", -60, now.Add(100*time.Millisecond))
	assert.False(t, ok, "throttled")

	_, ok = s.accept("AA:BB:CC:DD:EE:FF", -60, now.Add(config.FeedInterval))
	assert.True(t, ok)

	_, ok = s.accept("11:22:33:44:55:66", -50, now)
	assert.False(t, ok, "unknown MAC")
}

func TestBLEScanner_NoMACs(t *testing.T) {
	s := NewBLEScanner(center, nil)
	assert.Error(t, s.Start(context.Background(), func(heatmap.Reading) {}))
}
