package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rssi-heatmap.klederson.com/internal/beacon"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// File is the on-disk JSON schema. Every field is optional; omitted fields
// keep their defaults.
type File struct {
	Calibration      *CalibrationFile  `json:"calibration,omitempty"`
	ReferenceAntenna *beacon.Profile   `json:"reference_antenna,omitempty"`
	Beacons          []beacon.Profile  `json:"beacons,omitempty"`
	DefaultBeacon    string            `json:"default_beacon,omitempty"`
	Center           *LatLng           `json:"center,omitempty"`
	BeaconMACs       map[string]string `json:"beacon_macs,omitempty"` // MAC -> beacon id
}

// CalibrationFile holds the overridable calibration constants. The
// reference antenna's measured power comes from ReferenceAntenna.
type CalibrationFile struct {
	NoiseFloor       *float64 `json:"noise_floor,omitempty"`
	PathLossExponent *float64 `json:"path_loss_exponent,omitempty"`
}

// LatLng is a coordinate in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Config is the resolved, validated process configuration. Treat it as
// read-only once loaded.
type Config struct {
	Calibration   beacon.Calibration
	Catalog       *beacon.Catalog
	DefaultBeacon string
	Center        LatLng
	BeaconMACs    map[string]string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Calibration:   DefaultCalibration(),
		Catalog:       DefaultCatalog(),
		DefaultBeacon: DefaultBeacon,
		Center:        LatLng{Lat: CenterLat, Lng: CenterLng},
		BeaconMACs:    map[string]string{},
	}
}

// Load reads a JSON config file and resolves it against the defaults. An
// empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg, err := f.Resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Resolve merges the file over the defaults and validates the result.
func (f *File) Resolve() (*Config, error) {
	cfg := Default()

	ref := DefaultReferenceAntenna()
	if f.ReferenceAntenna != nil {
		ref = *f.ReferenceAntenna
		if ref.ID == "" {
			ref.ID = ReferenceAntennaID
		}
	}
	cfg.Calibration.ReferenceAntennaMeasuredPower = ref.MeasuredPower

	if f.Calibration != nil {
		if f.Calibration.NoiseFloor != nil {
			cfg.Calibration.NoiseFloor = *f.Calibration.NoiseFloor
		}
		if f.Calibration.PathLossExponent != nil {
			cfg.Calibration.PathLossExponent = *f.Calibration.PathLossExponent
		}
	}

	beacons := DefaultBeacons()
	if len(f.Beacons) > 0 {
		beacons = f.Beacons
	}
	catalog, err := beacon.NewCatalog(ref, beacons...)
	if err != nil {
		return nil, err
	}
	cfg.Catalog = catalog

	if f.DefaultBeacon != "" {
		cfg.DefaultBeacon = f.DefaultBeacon
	} else if !catalog.Has(cfg.DefaultBeacon) && catalog.Len() > 0 {
		cfg.DefaultBeacon = catalog.IDs()[0]
	}

	if f.Center != nil {
		cfg.Center = *f.Center
	}

	for mac, id := range f.BeaconMACs {
		cfg.BeaconMACs[NormalizeMAC(mac)] = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if err := c.Calibration.Validate(); err != nil {
		return err
	}
	if !c.Catalog.Has(c.DefaultBeacon) {
		return fmt.Errorf("default beacon: %w", &beacon.UnknownBeaconError{ID: c.DefaultBeacon})
	}
	if c.Center.Lat < -90 || c.Center.Lat > 90 || c.Center.Lng < -180 || c.Center.Lng > 180 {
		return fmt.Errorf("center %v,%v out of range", c.Center.Lat, c.Center.Lng)
	}
	for mac, id := range c.BeaconMACs {
		if !c.Catalog.Has(id) {
			return fmt.Errorf("beacon_macs[%s]: %w", mac, &beacon.UnknownBeaconError{ID: id})
		}
	}
	return nil
}

// NewCalculator builds the radius calculator for this configuration.
func (c *Config) NewCalculator() (*beacon.Calculator, error) {
	return beacon.NewCalculator(c.Calibration, c.Catalog)
}

// NormalizeMAC upper-cases a MAC address and uses ':' separators so map
// lookups match what the scanner reports.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(mac), "-", ":"))
}
