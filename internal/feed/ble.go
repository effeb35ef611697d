package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/heatmap"
)

// BLEScanner turns advertisements from known beacons into readings taken
// at the operator's location. Only MACs listed in the beacon map are kept.
type BLEScanner struct {
	adapter  *bluetooth.Adapter
	location heatmap.Location
	macs     map[string]string // normalized MAC -> beacon id

	mu       sync.Mutex
	running  bool
	lastSent map[string]time.Time
	interval time.Duration
}

// NewBLEScanner creates a scanner on the default adapter.
func NewBLEScanner(location heatmap.Location, macs map[string]string) *BLEScanner {
	norm := make(map[string]string, len(macs))
	for mac, id := range macs {
		norm[config.NormalizeMAC(mac)] = id
	}
	return &BLEScanner{
		adapter:  bluetooth.DefaultAdapter,
		location: location,
		macs:     norm,
		lastSent: make(map[string]time.Time),
		interval: config.FeedInterval,
	}
}

// Start enables the adapter and scans in a goroutine until ctx is done or
// Stop is called.
func (s *BLEScanner) Start(ctx context.Context, sink Sink) error {
	if len(s.macs) == 0 {
		return errors.New("no beacon_macs configured; nothing to scan for")
	}
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	go func() {
		err := s.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if r, ok := s.accept(result.Address.String(), result.RSSI, time.Now()); ok {
				sink(r)
			}
		})
		if err != nil {
			logrus.WithError(err).Warn("BLE scan stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// accept maps an advertisement to a reading, throttled to one reading per
// beacon per interval.
func (s *BLEScanner) accept(mac string, rssi int16, now time.Time) (heatmap.Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return heatmap.Reading{}, false
	}
	mac = config.NormalizeMAC(mac)
	id, ok := s.macs[mac]
	if !ok {
		return heatmap.Reading{}, false
	}
	if last, seen := s.lastSent[mac]; seen && now.Sub(last) < s.interval {
		return heatmap.Reading{}, false
	}
	s.lastSent[mac] = now

	return heatmap.Reading{
		Location: s.location,
		RSSI:     float64(rssi),
		BeaconID: id,
		Source:   mac,
		At:       now,
	}, true
}

// Stop halts the BLE scanner.
func (s *BLEScanner) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()
	if wasRunning {
		_ = s.adapter.StopScan()
	}
}
