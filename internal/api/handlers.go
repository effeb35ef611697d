package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rssi-heatmap.klederson.com/internal/beacon"
	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/heatmap"
)

// HeatmapView is what a heat-layer widget needs to draw the current state.
type HeatmapView struct {
	Points     []heatmap.HeatPoint `json:"points"`
	Radius     float64             `json:"radius"`
	Blur       int                 `json:"blur"`
	Gradient   map[string]string   `json:"gradient"`
	BeaconType string              `json:"beacon_type"`
}

type radiusRequest struct {
	RSSI   *float64 `json:"rssi" binding:"required"`
	Beacon string   `json:"beacon"`
}

type radiusResponse struct {
	beacon.RadiusResult
	Beacon    string  `json:"beacon"`
	Visible   bool    `json:"visible"`
	Intensity float64 `json:"intensity"`
	Color     string  `json:"color"`
	RGB       string  `json:"rgb"`
}

type locationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (r locationRequest) location() (heatmap.Location, error) {
	loc := heatmap.Location{Lat: *r.Lat, Lng: *r.Lng}
	if err := loc.Validate(); err != nil {
		return loc, badRequest{err}
	}
	return loc, nil
}

type pointRequest struct {
	locationRequest
	RSSI   *float64 `json:"rssi" binding:"required"`
	Beacon string   `json:"beacon"`
}

type readingRequest struct {
	RSSI   *float64 `json:"rssi" binding:"required"`
	Beacon string   `json:"beacon"`
}

// importEntry mirrors heatmap.ExportedSample with every number required, so
// a missing rssi is rejected instead of read as 0 dBm.
type importEntry struct {
	Lat    *float64 `json:"lat" binding:"required"`
	Lng    *float64 `json:"lng" binding:"required"`
	RSSI   *float64 `json:"rssi" binding:"required"`
	Beacon string   `json:"beacon"`
}

func (s *Server) heatmapView() HeatmapView {
	return HeatmapView{
		Points:     s.store.RenderableSamples(),
		Radius:     s.store.LayerRadius(),
		Blur:       config.HeatBlur,
		Gradient:   heatmap.GradientMap(),
		BeaconType: s.store.BeaconType(),
	}
}

func (s *Server) handleBeacons(c *gin.Context) {
	cat := s.store.Calculator().Catalog()
	c.JSON(http.StatusOK, gin.H{
		"reference": cat.Reference(),
		"beacons":   cat.Profiles(),
		"default":   s.store.BeaconType(),
	})
}

func (s *Server) handleCalibration(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Calculator().Calibration())
}

func (s *Server) handleRadius(c *gin.Context) {
	var req radiusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest{err})
		return
	}
	if req.Beacon == "" {
		req.Beacon = s.store.BeaconType()
	}

	res, err := s.store.Calculator().ComputeRadius(*req.RSSI, req.Beacon)
	if err != nil {
		writeError(c, err)
		return
	}
	color := beacon.ColorFor(*req.RSSI)
	c.JSON(http.StatusOK, radiusResponse{
		RadiusResult: res,
		Beacon:       req.Beacon,
		Visible:      res.Visible(),
		Intensity:    beacon.IntensityFor(*req.RSSI),
		Color:        color.Hex(),
		RGB:          color.String(),
	})
}

func (s *Server) handleListPoints(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Samples())
}

func (s *Server) handleAddPoint(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest{err})
		return
	}
	loc, err := req.location()
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Beacon == "" {
		req.Beacon = s.store.BeaconType()
	}

	sample, err := s.store.AddPoint(loc, *req.RSSI, req.Beacon)
	if err != nil {
		writeError(c, err)
		return
	}
	if sample == nil {
		// Zero radius, nothing stored
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, sample)
}

func indexParam(c *gin.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, badRequest{fmt.Errorf("invalid index %q", c.Param("index"))}
	}
	return idx, nil
}

func (s *Server) handleMovePoint(c *gin.Context) {
	idx, err := indexParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest{err})
		return
	}
	loc, err := req.location()
	if err != nil {
		writeError(c, err)
		return
	}

	if err := s.store.UpdatePointLocation(idx, loc); err != nil {
		writeError(c, err)
		return
	}
	sample, err := s.store.At(idx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sample)
}

func (s *Server) handleUpdateReading(c *gin.Context) {
	idx, err := indexParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest{err})
		return
	}

	sample, err := s.store.UpdatePointReading(idx, *req.RSSI, req.Beacon)
	if err != nil {
		writeError(c, err)
		return
	}
	if sample == nil {
		// Zero radius, the point was removed
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, sample)
}

func (s *Server) handleDeletePoint(c *gin.Context) {
	idx, err := indexParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.store.DeletePoint(idx); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHeatmap(c *gin.Context) {
	c.JSON(http.StatusOK, s.heatmapView())
}

func (s *Server) handleExport(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="heatmap.json"`)
	c.JSON(http.StatusOK, s.store.ExportSamples())
}

func (s *Server) handleImport(c *gin.Context) {
	var entries []importEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		writeError(c, badRequest{err})
		return
	}
	samples := make([]heatmap.ExportedSample, 0, len(entries))
	for i, e := range entries {
		if e.Lat == nil || e.Lng == nil || e.RSSI == nil {
			writeError(c, badRequest{fmt.Errorf("import sample %d: lat, lng and rssi are required", i)})
			return
		}
		samples = append(samples, heatmap.ExportedSample{Lat: *e.Lat, Lng: *e.Lng, RSSI: *e.RSSI, Beacon: e.Beacon})
	}
	res, err := s.store.ImportSamples(samples)
	if err != nil {
		writeError(c, badRequest{err})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListLayouts(c *gin.Context) {
	if s.layouts == nil {
		writeError(c, errNoLayoutStore)
		return
	}
	layouts, err := s.layouts.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, layouts)
}

func (s *Server) handleSaveLayout(c *gin.Context) {
	if s.layouts == nil {
		writeError(c, errNoLayoutStore)
		return
	}
	name := c.Param("name")
	points := s.store.ExportSamples()
	id, err := s.layouts.Save(c.Request.Context(), name, points)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "name": name, "point_count": len(points)})
}

func (s *Server) handleLoadLayout(c *gin.Context) {
	if s.layouts == nil {
		writeError(c, errNoLayoutStore)
		return
	}
	points, err := s.layouts.Load(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	// A layout saved under another beacon catalog can reference unknown
	// types; the import is then rejected as a whole.
	res, err := s.store.ImportSamples(points)
	if err != nil {
		writeError(c, badRequest{err})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeleteLayout(c *gin.Context) {
	if s.layouts == nil {
		writeError(c, errNoLayoutStore)
		return
	}
	if err := s.layouts.Delete(c.Request.Context(), c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
