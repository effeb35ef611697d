package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"rssi-heatmap.klederson.com/internal/beacon"
	"rssi-heatmap.klederson.com/internal/heatmap"
)

// Detail is what the detail panel shows for one sample.
type Detail struct {
	Index   int
	Sample  heatmap.Sample
	Profile beacon.Profile
	Debug   beacon.Debug

	// Where the reading came from, when it came from a feed
	Source string
	Seen   time.Time

	// RSSI history of the sample's beacon type
	History []float64
	Mean    float64
	StdDev  float64
}

// RenderDetailPanel renders the sample detail overlay that replaces the map.
func RenderDetailPanel(d Detail, width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}

	title := StylePanelTitle.Render(fmt.Sprintf("POINT #%d", d.Index))
	escHint := StyleHelp.Render("[T]ype  [ESC]")
	titleLine := title + strings.Repeat(" ", max(0, innerW-lipgloss.Width(title)-lipgloss.Width(escHint))) + escHint

	sep := StyleSeparator.Render(strings.Repeat("-", innerW))
	lines := []string{titleLine, sep, ""}

	labelSty := lipgloss.NewStyle().Foreground(ColorMidGreen)
	valSty := lipgloss.NewStyle().Foreground(ColorMatrixGreen).Bold(true)

	s := d.Sample
	fields := []struct{ label, value string }{
		{"Beacon", fmt.Sprintf("%s (%s, %.0f dBm @1m)", d.Profile.DisplayName, d.Profile.ID, d.Profile.MeasuredPower)},
		{"Location", fmt.Sprintf("%.6f, %.6f", s.Location.Lat, s.Location.Lng)},
		{"RSSI", fmt.Sprintf("%.0f dBm", s.RSSI)},
		{"Intensity", fmt.Sprintf("%.3f", s.Intensity)},
		{"Radius", fmt.Sprintf("%.2f m", s.Radius)},
		{"", ""},
		{"Offset", fmt.Sprintf("%+.1f dB", d.Debug.CalibrationOffset)},
		{"Comp.", fmt.Sprintf("%.1f dBm", d.Debug.CompensatedRSSI)},
		{"Dist", fmt.Sprintf("%.2f m", d.Debug.MeasurementDistance)},
		{"Max", fmt.Sprintf("%.2f m", d.Debug.MaxDistance)},
	}
	if d.Source != "" {
		fields = append(fields,
			struct{ label, value string }{"", ""},
			struct{ label, value string }{"Source", d.Source},
			struct{ label, value string }{"Seen", formatLastSeen(d.Seen)},
		)
	}
	for _, f := range fields {
		if f.label == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, labelSty.Render(fmt.Sprintf("  %-10s", f.label))+valSty.Render(f.value))
	}

	lines = append(lines, "")

	barWidth := innerW - 22
	if barWidth < 10 {
		barWidth = 10
	}
	lines = append(lines, labelSty.Render("  Signal ")+renderSignalBar(s.RSSI, barWidth)+valSty.Render(fmt.Sprintf(" %ddBm", int(s.RSSI))))

	lines = append(lines, "")

	if len(d.History) > 0 {
		sparkW := innerW - 4
		if sparkW < 10 {
			sparkW = 10
		}
		lines = append(lines, labelSty.Render(fmt.Sprintf("  RSSI History (%s): mean %.1f  sd %.1f", s.BeaconID, d.Mean, d.StdDev)))
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(renderSparkline(d.History, sparkW)))
	}

	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	if len(lines) > height-2 {
		lines = lines[:max(0, height-2)]
	}

	content := strings.Join(lines, "\n")
	return StylePanelActive.Width(width - 2).Height(height - 2).Render(content)
}

// renderSignalBar fills proportionally over the RSSI display range,
// coloured like the point's marker.
func renderSignalBar(rssi float64, width int) string {
	ratio := (beacon.ClampRSSI(rssi) - beacon.RSSIMin) / (beacon.RSSIMax - beacon.RSSIMin)
	filled := int(math.Round(ratio * float64(width)))

	bar := strings.Repeat("|", filled) + strings.Repeat("-", width-filled)
	filledPart := lipgloss.NewStyle().Foreground(lipgloss.Color(beacon.ColorFor(rssi).Hex())).Render(bar[:filled])
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(bar[filled:])
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	rng := maxV - minV
	if rng < 1 {
		rng = 1
	}

	// Take last `width` values
	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int((values[i] - minV) / rng * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)
		sb.WriteByte(chars[idx])
	}
	return sb.String()
}

func formatLastSeen(t time.Time) string {
	d := time.Since(t)
	if d < time.Second {
		return "now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm ago", int(d.Minutes()))
}
