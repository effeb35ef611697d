package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout joins the map panel and sample list horizontally,
// with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, mapPanel, sampleList, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, mapPanel, sampleList)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}

// RenderMapPanel wraps heat grid content with a styled border.
func RenderMapPanel(width, height int, gridContent, legend string) string {
	content := gridContent + "\n" + legend
	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(content)
}
