package ui

import (
	"math"

	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/heatmap"
)

// Viewport maps geographic coordinates onto a character grid centred on
// Center. SpanM is the ground distance covered by the grid's shorter side.
type Viewport struct {
	Center heatmap.Location
	SpanM  float64
	Width  int
	Height int
}

func (v Viewport) centerCell() (int, int) {
	return v.Width / 2, v.Height / 2
}

// MetersPerCell returns the ground width of one column. A row is
// 1/AspectRatio columns tall.
func (v Viewport) MetersPerCell() float64 {
	cols := float64(v.Width)
	if rows := float64(v.Height) / config.AspectRatio; rows < cols {
		cols = rows
	}
	if cols < 1 {
		cols = 1
	}
	return v.SpanM / cols
}

// metersPerDegLng is the east-west ground length of one degree at the
// viewport's latitude.
func (v Viewport) metersPerDegLng() float64 {
	return math.Cos(v.Center.Lat*math.Pi/180) / heatmap.MetersToDegrees(1)
}

// Cell returns the column and row of loc. ok is false when loc falls
// outside the grid.
func (v Viewport) Cell(loc heatmap.Location) (col, row int, ok bool) {
	east := (loc.Lng - v.Center.Lng) * v.metersPerDegLng()
	north := (loc.Lat - v.Center.Lat) / heatmap.MetersToDegrees(1)

	mpc := v.MetersPerCell()
	cx, cy := v.centerCell()
	col = cx + int(math.Round(east/mpc))
	row = cy - int(math.Round(north/mpc*config.AspectRatio))
	ok = col >= 0 && col < v.Width && row >= 0 && row < v.Height
	return col, row, ok
}

// Location returns the coordinate at the centre of a cell.
func (v Viewport) Location(col, row int) heatmap.Location {
	mpc := v.MetersPerCell()
	cx, cy := v.centerCell()
	east := float64(col-cx) * mpc
	north := float64(cy-row) * mpc / config.AspectRatio
	return heatmap.Location{
		Lat: v.Center.Lat + north*heatmap.MetersToDegrees(1),
		Lng: v.Center.Lng + east/v.metersPerDegLng(),
	}
}

// CellDistance returns the ground distance in meters between two cells,
// accounting for terminal aspect ratio.
func (v Viewport) CellDistance(col1, row1, col2, row2 int) float64 {
	dx := float64(col1 - col2)
	dy := float64(row1-row2) / config.AspectRatio
	return math.Sqrt(dx*dx+dy*dy) * v.MetersPerCell()
}
