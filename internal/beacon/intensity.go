package beacon

import (
	"fmt"
	"math"
)

// Dynamic range used for colour and intensity normalization (dBm).
const (
	RSSIMin = -90.0
	RSSIMax = -10.0

	// MinIntensity is the floor applied to every stored intensity.
	MinIntensity = 0.1
)

// RGB is an 8-bit colour.
type RGB struct {
	R, G, B uint8
}

// Hex returns the colour as #RRGGBB.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// ClampRSSI limits rssi to [RSSIMin, RSSIMax].
func ClampRSSI(rssi float64) float64 {
	if math.IsNaN(rssi) {
		return RSSIMin
	}
	return math.Min(math.Max(rssi, RSSIMin), RSSIMax)
}

// ColorFor maps rssi linearly from red (-90 dBm) to green (-10 dBm).
func ColorFor(rssi float64) RGB {
	t := (ClampRSSI(rssi) - RSSIMin) / (RSSIMax - RSSIMin)
	return RGB{
		R: uint8(math.Round(255 * (1 - t))),
		G: uint8(math.Round(255 * t)),
	}
}

// IntensityFor maps rssi to a heat intensity in [MinIntensity, 1]. The
// ramp runs opposite to ColorFor: -10 dBm gives 0 before the floor is
// applied, -90 dBm gives 1. Clamp first, then floor.
func IntensityFor(rssi float64) float64 {
	t := (ClampRSSI(rssi) - RSSIMax) / (RSSIMin - RSSIMax)
	return math.Max(MinIntensity, math.Min(t, 1))
}
