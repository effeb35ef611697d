package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"rssi-heatmap.klederson.com/internal/beacon"
	"rssi-heatmap.klederson.com/internal/heatmap"
)

// Cursor row style: black text on bright green = unmissable highlight
var cursorRowSty = lipgloss.NewStyle().
	Foreground(ColorBlack).
	Background(ColorMatrixGreen).
	Bold(true)

// RenderSampleList renders the scrollable sample list panel with a cursor.
// The header stays fixed at the top; only the entries scroll.
func RenderSampleList(samples []heatmap.Sample, width, height int, cursorIndex int, beaconType string) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}

	title := StylePanelTitle.Render(fmt.Sprintf("POINTS [%d]", len(samples)))
	separator := StyleSeparator.Render(strings.Repeat("-", innerW))
	beaconLine := " " + StyleHelp.Render("beacon ") + StyleSampleBeacon.Render(beaconType)
	headerLines := []string{title, separator, beaconLine}
	headerCount := len(headerLines)

	// Total inner height (excluding border top+bottom)
	innerH := height - 2
	if innerH < headerCount+1 {
		innerH = headerCount + 1
	}

	space := innerH - headerCount
	if space < 1 {
		space = 1
	}

	var lines []string
	if len(samples) == 0 {
		lines = append(lines, "")
		lines = append(lines, StyleHelp.Render(" No points..."))
		lines = append(lines, StyleHelp.Render(" Waiting for readings"))
	} else {
		linesPerSample := 4 // 3 content + 1 blank
		maxVisible := space / linesPerSample
		if maxVisible < 1 {
			maxVisible = 1
		}

		// Compute viewport start so cursor is always visible
		viewStart := 0
		if cursorIndex >= maxVisible {
			viewStart = cursorIndex - maxVisible + 1
		}

		count := 0
		for i := viewStart; i < len(samples) && count < space; i++ {
			for _, l := range renderSampleEntry(i, samples[i], innerW, i == cursorIndex) {
				if count >= space {
					break
				}
				lines = append(lines, l)
				count++
			}
		}
	}

	if len(lines) > space {
		lines = lines[:space]
	}
	for len(lines) < space {
		lines = append(lines, "")
	}

	all := make([]string, 0, innerH)
	all = append(all, headerLines...)
	all = append(all, lines...)

	content := strings.Join(all, "\n")
	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(content)

	// lipgloss Height() only sets a minimum; it won't truncate overflow.
	outLines := strings.Split(rendered, "\n")
	if len(outLines) > height {
		outLines = outLines[:height]
	}
	for len(outLines) < height {
		outLines = append(outLines, "")
	}
	return strings.Join(outLines, "\n")
}

func renderSampleEntry(index int, s heatmap.Sample, maxW int, isCursor bool) []string {
	cursor := "  "
	if isCursor {
		cursor = ">>"
	}

	num := fmt.Sprintf("#%d", index)
	coord := fmt.Sprintf("%.6f,%.6f", s.Location.Lat, s.Location.Lng)
	rssiStr := fmt.Sprintf("%ddBm", int(s.RSSI))
	radiusStr := fmt.Sprintf("r=%.2fm", s.Radius)

	if isCursor {
		raw1 := truncRaw(fmt.Sprintf("%s %s %s", cursor, num, s.BeaconID), maxW)
		raw2 := truncRaw("       "+coord, maxW)
		raw3 := truncRaw(fmt.Sprintf("       %s  %s", rssiStr, radiusStr), maxW)
		return []string{
			cursorRowSty.Render(raw1),
			cursorRowSty.Render(raw2),
			cursorRowSty.Render(raw3),
			"",
		}
	}

	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(beacon.ColorFor(s.RSSI).Hex())).Render("*")
	line1 := fmt.Sprintf("   %s %s %s", StyleHelp.Render(num), swatch, StyleSampleBeacon.Render(s.BeaconID))
	line2 := "       " + StyleSampleCoord.Render(truncRaw(coord, max(0, maxW-7)))
	line3 := fmt.Sprintf("       %s  %s", StyleSampleRSSI.Render(rssiStr), StyleSampleRadius.Render(radiusStr))
	return []string{line1, line2, line3, ""}
}

// truncRaw pads or truncates a raw string to exactly w characters.
func truncRaw(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	if len(s) < w {
		return s + strings.Repeat(" ", w-len(s))
	}
	return s
}
