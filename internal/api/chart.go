package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"rssi-heatmap.klederson.com/internal/heatmap"
)

// handleHeatmapChart renders the renderable samples as a lng/lat scatter
// coloured by intensity with the heat layer gradient.
func (s *Server) handleHeatmapChart(c *gin.Context) {
	points := s.store.RenderableSamples()

	data := make([]opts.ScatterData, 0, len(points))
	locs := make([]heatmap.Location, 0, len(points))
	for _, p := range points {
		data = append(data, opts.ScatterData{Value: []interface{}{p.Lng(), p.Lat(), p.Intensity()}})
		locs = append(locs, heatmap.Location{Lat: p.Lat(), Lng: p.Lng()})
	}

	// Pad the view so single points are not drawn on the axis edge
	if len(locs) == 0 {
		locs = append(locs, s.center)
	}
	rect := heatmap.Bounds(locs)
	pad := heatmap.MetersToDegrees(5)
	xMin, xMax := rect.Lo().Lng.Degrees()-pad, rect.Hi().Lng.Degrees()+pad
	yMin, yMax := rect.Lo().Lat.Degrees()-pad, rect.Hi().Lat.Degrees()+pad

	colors := make([]string, 0, len(heatmap.Gradient))
	for _, stop := range heatmap.Gradient {
		colors = append(colors, stop.Color.Hex())
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "RSSI Heatmap", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "RSSI Heatmap", Subtitle: fmt.Sprintf("points=%d beacon=%s radius=%.2fm", len(data), s.store.BeaconType(), s.store.LayerRadius())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: xMin, Max: xMax, Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: yMin, Max: yMax, Name: "Latitude", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(heatmap.Gradient[0].At),
			Max:        float32(heatmap.Gradient[len(heatmap.Gradient)-1].At),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: colors},
		}),
	)
	scatter.AddSeries("samples", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		writeError(c, fmt.Errorf("failed to render chart: %w", err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
