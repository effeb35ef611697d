package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Status is what the bottom bar reports.
type Status struct {
	Scanning    bool
	Points      int
	Renderable  int
	BeaconType  string
	LayerRadius float64
	LastRSSI    float64
	HasReading  bool
	Message     string
	IsError     bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, st Status) string {
	status := ""
	if st.Scanning {
		status = StyleStatusScanning.Render("[SCANNING]")
	} else {
		status = StyleStatusPaused.Render("[PAUSED]")
	}

	last := "--"
	if st.HasReading {
		last = fmt.Sprintf("%ddBm", int(st.LastRSSI))
	}
	info := fmt.Sprintf(" Points: %d  Shown: %d  Beacon: %s  Radius: %.1fm  Last: %s",
		st.Points, st.Renderable, st.BeaconType, st.LayerRadius, last)

	content := status + StyleStatusBar.Foreground(ColorGreen).Render(info)
	if st.Message != "" {
		sty := StyleStatusScanning
		if st.IsError {
			sty = StyleStatusError
		}
		content += "  " + sty.Render(st.Message)
	}

	gap := width - lipgloss.Width(content) - 2 // horizontal padding
	if gap < 0 {
		gap = 0
	}
	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
