package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/heatmap"
)

var (
	styleGridCenter   = lipgloss.NewStyle().Foreground(ColorMatrixGreen).Bold(true)
	styleGridDot      = lipgloss.NewStyle().Foreground(ColorDimGreen)
	styleGridSample   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	styleGridSelected = lipgloss.NewStyle().Foreground(ColorBlack).Background(ColorMatrixGreen).Bold(true)
)

// heatCell is the strongest contribution to a cell.
type heatCell struct {
	weight    float64 // falloff in (0, 1]
	intensity float64
}

// heatGrid computes per-cell heat for samples: each sample spreads its
// intensity over layerRadius meters (at least 1.5 cells) with a linear
// falloff; overlapping samples keep the strongest contribution.
func heatGrid(vp Viewport, samples []heatmap.Sample, layerRadius float64) [][]heatCell {
	grid := make([][]heatCell, vp.Height)
	for r := range grid {
		grid[r] = make([]heatCell, vp.Width)
	}

	mpc := vp.MetersPerCell()
	radius := math.Max(layerRadius, 1.5*mpc)
	spanCols := int(math.Ceil(radius / mpc))
	spanRows := int(math.Ceil(radius / mpc * config.AspectRatio))

	for _, s := range samples {
		if s.Intensity <= 0 {
			continue
		}
		sc, sr, _ := vp.Cell(s.Location)
		for row := sr - spanRows; row <= sr+spanRows; row++ {
			if row < 0 || row >= vp.Height {
				continue
			}
			for col := sc - spanCols; col <= sc+spanCols; col++ {
				if col < 0 || col >= vp.Width {
					continue
				}
				d := vp.CellDistance(col, row, sc, sr)
				if d > radius {
					continue
				}
				w := 1 - d/radius
				if w <= 0 {
					w = 0.01 // edge cells still show
				}
				if w > grid[row][col].weight {
					grid[row][col] = heatCell{weight: w, intensity: s.Intensity}
				}
			}
		}
	}
	return grid
}

// RenderHeatGrid produces the heat map display as a styled string.
// selected is the index of the highlighted sample, or -1.
func RenderHeatGrid(vp Viewport, samples []heatmap.Sample, layerRadius float64, selected int) string {
	if vp.Width < 10 || vp.Height < 5 {
		return ""
	}

	grid := heatGrid(vp, samples, layerRadius)

	type mark struct{ selected bool }
	marks := make(map[int]mark, len(samples))
	for i, s := range samples {
		if col, row, ok := vp.Cell(s.Location); ok {
			key := row*vp.Width + col
			if m, seen := marks[key]; seen && m.selected {
				continue
			}
			marks[key] = mark{selected: i == selected}
		}
	}

	cx, cy := vp.centerCell()
	var sb strings.Builder
	for row := 0; row < vp.Height; row++ {
		for col := 0; col < vp.Width; col++ {
			if m, ok := marks[row*vp.Width+col]; ok {
				if m.selected {
					sb.WriteString(styleGridSelected.Render("@"))
				} else {
					sb.WriteString(styleGridSample.Render("*"))
				}
				continue
			}
			if col == cx && row == cy {
				sb.WriteString(styleGridCenter.Render("+"))
				continue
			}
			sb.WriteString(renderHeatCell(grid[row][col], col, row))
		}
		if row < vp.Height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func renderHeatCell(c heatCell, col, row int) string {
	if c.weight <= 0 {
		if col%4 == 0 && row%2 == 0 {
			return styleGridDot.Render(".")
		}
		return " "
	}

	ch := "░"
	switch {
	case c.weight > 0.66:
		ch = "█"
	case c.weight > 0.33:
		ch = "▓"
	}
	color := heatmap.GradientColor(c.intensity)
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color.Hex())).Render(ch)
}

// RenderHeatLegend produces the gradient legend and scale line.
func RenderHeatLegend(width int, vp Viewport) string {
	legend := " "
	for _, stop := range heatmap.Gradient {
		sty := lipgloss.NewStyle().Foreground(lipgloss.Color(stop.Color.Hex()))
		legend += sty.Render("█") + StyleLegend.Render(fmt.Sprintf(" %.1f  ", stop.At))
	}
	legend += styleGridSample.Render("*") + StyleLegend.Render(" point  ") +
		styleGridCenter.Render("+") + StyleLegend.Render(fmt.Sprintf(" center  1 col = %.2fm", vp.MetersPerCell()))

	pad := (width - lipgloss.Width(legend)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + legend
}
