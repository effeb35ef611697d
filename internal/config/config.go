package config

import (
	"time"

	"rssi-heatmap.klederson.com/internal/beacon"
)

const (
	// Radius model
	NoiseFloor                    = -90.0 // Global RSSI limit for maximum radius (dBm)
	PathLossExp                   = 3.0   // Environmental factor (N)
	ReferenceAntennaID            = "REFERENCE_ANTENNA"
	ReferenceAntennaMeasuredPower = -40.0 // RSSI at 1 meter of the calibration antenna (dBm)
	DefaultBeacon                 = "GO_500"

	// Heat layer
	DefaultLayerRadius = 1.0   // Slider radius in meters
	LayerRadiusCutoff  = -89.0 // Readings at or above this use the slider radius
	HeatBlur           = 30    // Heat layer blur (pixels)

	// Map
	CenterLat = 48.125149
	CenterLng = 8.339695

	// Heat grid display
	AspectRatio = 0.5  // Terminal char aspect correction (chars are ~2:1 tall)
	GridSpanM   = 60.0 // Meters covered by the grid's shorter side
	TargetFPS   = 10   // Target frames per second

	// Feed
	FeedInterval    = 1 * time.Second // Demo reading cadence (matches the RSSI monitor refresh)
	FreshWindow     = 5 * time.Second // Feed samples not refreshed within this are evicted
	EvictInterval   = 1 * time.Second // How often stale feed samples are checked
	DemoHubCount    = 8               // Fake hubs placed around the center
	DemoHubSpreadM  = 25.0            // Max hub distance from the center (meters)
	HistoryCapacity = 60              // RSSI samples kept per beacon type

	// Server
	DefaultAddr   = ":8080"
	DefaultDBPath = "heatmap.db"

	// App
	AppName    = "RSSI-HEATMAP"
	AppVersion = "1.0"
)

// DefaultCalibration returns the calibration constants of the radius model.
func DefaultCalibration() beacon.Calibration {
	return beacon.Calibration{
		NoiseFloor:                    NoiseFloor,
		PathLossExponent:              PathLossExp,
		ReferenceAntennaMeasuredPower: ReferenceAntennaMeasuredPower,
	}
}

// DefaultReferenceAntenna returns the calibration antenna profile.
func DefaultReferenceAntenna() beacon.Profile {
	return beacon.Profile{
		ID:            ReferenceAntennaID,
		DisplayName:   "Standard Reference Antenna",
		MeasuredPower: ReferenceAntennaMeasuredPower,
	}
}

// DefaultBeacons returns the calibrated beacon hardware table.
func DefaultBeacons() []beacon.Profile {
	return []beacon.Profile{
		{ID: "GO_500", DisplayName: "blukii Go 500", MeasuredPower: -45},
		{ID: "BOX", DisplayName: "blukii Box", MeasuredPower: -47},
		{ID: "COIN_250", DisplayName: "blukii Coin250", MeasuredPower: -53},
		{ID: "BEACON_4", DisplayName: "Beacon Type 4", MeasuredPower: -49},
		{ID: "BEACON_5", DisplayName: "Beacon Type 5", MeasuredPower: -51},
		{ID: "BEACON_6", DisplayName: "Beacon Type 6", MeasuredPower: -48},
	}
}

// DefaultCatalog builds the catalog from the default tables.
func DefaultCatalog() *beacon.Catalog {
	c, err := beacon.NewCatalog(DefaultReferenceAntenna(), DefaultBeacons()...)
	if err != nil {
		panic("default beacon catalog: " + err.Error())
	}
	return c
}
