package beacon

import "fmt"

// UnknownBeaconError is returned when a beacon id is not in the catalog.
type UnknownBeaconError struct {
	ID string
}

func (e *UnknownBeaconError) Error() string {
	return fmt.Sprintf("invalid beacon type: %q", e.ID)
}

// InvalidCalibrationError reports calibration constants that make the
// distance model undefined.
type InvalidCalibrationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidCalibrationError) Error() string {
	return fmt.Sprintf("invalid calibration %s=%v: %s", e.Field, e.Value, e.Reason)
}

// RadiusCalculationError wraps any failure raised while computing a radius.
type RadiusCalculationError struct {
	BeaconID string
	RSSI     float64
	Err      error
}

func (e *RadiusCalculationError) Error() string {
	return fmt.Sprintf("heatmap radius calculation failed (beacon=%s rssi=%v): %v", e.BeaconID, e.RSSI, e.Err)
}

func (e *RadiusCalculationError) Unwrap() error {
	return e.Err
}
