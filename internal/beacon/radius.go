package beacon

import (
	"fmt"
	"math"
)

// MinVisibleRadius is the smallest radius (meters) still drawn. Anything
// below it collapses to 0.
const MinVisibleRadius = 0.1

// Calibration holds the global constants of the radius model.
type Calibration struct {
	NoiseFloor                    float64 `json:"noise_floor"`        // weakest in-range RSSI (dBm)
	PathLossExponent              float64 `json:"path_loss_exponent"` // environmental factor (N)
	ReferenceAntennaMeasuredPower float64 `json:"reference_antenna_measured_power"`
}

// Validate rejects constants that make the distance model undefined.
func (c Calibration) Validate() error {
	if err := checkPathLossExponent(c.PathLossExponent); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"noise_floor", c.NoiseFloor},
		{"reference_antenna_measured_power", c.ReferenceAntennaMeasuredPower},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &InvalidCalibrationError{Field: f.name, Value: f.v, Reason: "must be finite"}
		}
	}
	return nil
}

// Debug carries the intermediate values of a radius calculation. They are
// meant for display only.
type Debug struct {
	CompensatedRSSI     float64 `json:"compensated_rssi"`
	MeasurementDistance float64 `json:"measurement_distance"`
	MaxDistance         float64 `json:"max_distance"`
	CalibrationOffset   float64 `json:"calibration_offset"`
}

// RadiusResult is the output of ComputeRadius.
type RadiusResult struct {
	Radius float64 `json:"radius"`
	Debug  Debug   `json:"debug"`
}

// Visible reports whether the radius is drawn at all.
func (r RadiusResult) Visible() bool {
	return r.Radius > 0
}

// Calculator derives heatmap radii from readings. It is immutable and safe
// for concurrent use.
type Calculator struct {
	cal     Calibration
	catalog *Catalog
}

// NewCalculator validates the calibration and binds it to a catalog.
func NewCalculator(cal Calibration, catalog *Catalog) (*Calculator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("nil beacon catalog")
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cal: cal, catalog: catalog}, nil
}

// Calibration returns the calculator's calibration constants.
func (c *Calculator) Calibration() Calibration {
	return c.cal
}

// Catalog returns the calculator's beacon catalog.
func (c *Calculator) Catalog() *Catalog {
	return c.catalog
}

// ComputeRadius returns the visualization radius for an RSSI reading taken
// with the reference antenna from a beacon of type beaconID. The radius is
// the gap between the distance implied by the noise floor and the distance
// implied by the (compensated) reading. Radii under MinVisibleRadius are 0.
func (c *Calculator) ComputeRadius(rssi float64, beaconID string) (RadiusResult, error) {
	fail := func(err error) (RadiusResult, error) {
		return RadiusResult{}, &RadiusCalculationError{BeaconID: beaconID, RSSI: rssi, Err: err}
	}

	profile, err := c.catalog.Lookup(beaconID)
	if err != nil {
		return fail(err)
	}

	offset := c.cal.ReferenceAntennaMeasuredPower - profile.MeasuredPower
	compensated := rssi - offset

	measurement, err := EstimateDistance(compensated, profile.MeasuredPower, c.cal.PathLossExponent)
	if err != nil {
		return fail(err)
	}
	maxDist, err := EstimateDistance(c.cal.NoiseFloor, profile.MeasuredPower, c.cal.PathLossExponent)
	if err != nil {
		return fail(err)
	}

	res := RadiusResult{
		Debug: Debug{
			CompensatedRSSI:     compensated,
			MeasurementDistance: measurement,
			MaxDistance:         maxDist,
			CalibrationOffset:   offset,
		},
	}

	radius := maxDist - measurement
	if math.IsNaN(radius) {
		return fail(fmt.Errorf("radius is not a number"))
	}
	if radius < MinVisibleRadius {
		return res, nil
	}
	res.Radius = round2(radius)
	return res, nil
}

// Visible reports whether a reading would produce a drawn radius.
func (c *Calculator) Visible(rssi float64, beaconID string) (bool, error) {
	res, err := c.ComputeRadius(rssi, beaconID)
	if err != nil {
		return false, err
	}
	return res.Visible(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
