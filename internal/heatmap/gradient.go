package heatmap

import (
	"math"
	"strconv"

	"rssi-heatmap.klederson.com/internal/beacon"
)

// GradientStop is one colour stop of the heat layer.
type GradientStop struct {
	At    float64    `json:"at"`
	Name  string     `json:"name"`
	Color beacon.RGB `json:"-"`
}

// Gradient is the heat layer colour ramp, ordered by At.
var Gradient = []GradientStop{
	{At: 0.1, Name: "red", Color: beacon.RGB{R: 255}},
	{At: 0.4, Name: "orange", Color: beacon.RGB{R: 255, G: 165}},
	{At: 0.7, Name: "yellow", Color: beacon.RGB{R: 255, G: 255}},
	{At: 1.0, Name: "green", Color: beacon.RGB{G: 128}},
}

// GradientColor interpolates the heat layer colour for an intensity.
func GradientColor(intensity float64) beacon.RGB {
	first, last := Gradient[0], Gradient[len(Gradient)-1]
	if math.IsNaN(intensity) || intensity <= first.At {
		return first.Color
	}
	if intensity >= last.At {
		return last.Color
	}
	for i := 1; i < len(Gradient); i++ {
		lo, hi := Gradient[i-1], Gradient[i]
		if intensity > hi.At {
			continue
		}
		t := (intensity - lo.At) / (hi.At - lo.At)
		return beacon.RGB{
			R: lerp(lo.Color.R, hi.Color.R, t),
			G: lerp(lo.Color.G, hi.Color.G, t),
			B: lerp(lo.Color.B, hi.Color.B, t),
		}
	}
	return last.Color
}

// GradientMap returns the stops as the {position: colour name} map heat
// layer widgets take.
func GradientMap() map[string]string {
	out := make(map[string]string, len(Gradient))
	for _, s := range Gradient {
		out[strconv.FormatFloat(s.At, 'f', 1, 64)] = s.Name
	}
	return out
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
