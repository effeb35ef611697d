package heatmap

import (
	"fmt"
	"math"
	"time"
)

// Location is a geographic coordinate in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects coordinates outside the WGS84 range.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) || l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("invalid location %v,%v", l.Lat, l.Lng)
	}
	return nil
}

// Reading is a single RSSI observation of a beacon at a location.
type Reading struct {
	Location Location
	RSSI     float64
	BeaconID string
	Source   string // MAC or hub name, informational
	At       time.Time
}

// Sample is a stored heatmap point. RSSI and BeaconID are kept so the store
// can be exported without loss; Intensity and Radius are derived once, when
// the sample is added.
type Sample struct {
	ID        string   `json:"id"`
	Location  Location `json:"location"`
	Intensity float64  `json:"intensity"`
	RSSI      float64  `json:"rssi"`
	BeaconID  string   `json:"beacon"`
	Radius    float64  `json:"radius"`
}

// ExportedSample is the persistence shape of a sample.
type ExportedSample struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	RSSI   float64 `json:"rssi"`
	Beacon string  `json:"beacon,omitempty"`
}

// HeatPoint is a (lat, lng, intensity) triple for a heat layer. It encodes
// as a JSON array.
type HeatPoint [3]float64

func (p HeatPoint) Lat() float64       { return p[0] }
func (p HeatPoint) Lng() float64       { return p[1] }
func (p HeatPoint) Intensity() float64 { return p[2] }

// ImportResult summarises an ImportSamples call.
type ImportResult struct {
	Imported int `json:"imported"`
	Dropped  int `json:"dropped"` // zero-radius entries
}
