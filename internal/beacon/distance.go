package beacon

import "math"

// EstimateDistance estimates distance in meters from RSSI using the
// log-distance path loss model.
// Formula: d = 10^((measuredPower - rssi) / (10 * n))
func EstimateDistance(rssi, measuredPower, pathLossExp float64) (float64, error) {
	if err := checkPathLossExponent(pathLossExp); err != nil {
		return 0, err
	}
	return math.Pow(10, (measuredPower-rssi)/(10*pathLossExp)), nil
}

func checkPathLossExponent(n float64) error {
	switch {
	case math.IsNaN(n) || math.IsInf(n, 0):
		return &InvalidCalibrationError{Field: "path_loss_exponent", Value: n, Reason: "must be finite"}
	case n <= 0:
		return &InvalidCalibrationError{Field: "path_loss_exponent", Value: n, Reason: "must be positive"}
	}
	return nil
}
