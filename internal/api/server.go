// Package api exposes the heatmap store over HTTP and WebSocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/heatmap"
	"rssi-heatmap.klederson.com/internal/storage"
)

// Server wires the store, the optional layout database and the WebSocket
// hub into a gin engine.
type Server struct {
	store   *heatmap.Store
	layouts *storage.LayoutStore
	center  heatmap.Location
	hub     *Hub
	engine  *gin.Engine
}

// NewServer builds the router. layouts may be nil, in which case the
// layout routes answer 503. center frames the chart while the store is
// empty.
func NewServer(store *heatmap.Store, layouts *storage.LayoutStore, center heatmap.Location) *Server {
	s := &Server{
		store:   store,
		layouts: layouts,
		center:  center,
	}
	s.hub = NewHub(func() any { return s.heatmapView() })
	store.OnChange(s.hub.Broadcast)
	s.engine = s.setupRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Logger(), CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"app":     config.AppName,
			"version": config.AppVersion,
			"points":  s.store.Len(),
		})
	})
	r.GET("/heatmap.html", s.handleHeatmapChart)
	r.GET("/ws", gin.WrapH(s.hub))

	api := r.Group("/api/v1")
	{
		api.GET("/beacons", s.handleBeacons)
		api.GET("/calibration", s.handleCalibration)
		api.POST("/radius", s.handleRadius)

		points := api.Group("/points")
		{
			points.GET("", s.handleListPoints)
			points.POST("", s.handleAddPoint)
			points.PUT("/:index", s.handleUpdateReading)
			points.PUT("/:index/location", s.handleMovePoint)
			points.DELETE("/:index", s.handleDeletePoint)
		}

		api.GET("/heatmap", s.handleHeatmap)
		api.GET("/export", s.handleExport)
		api.POST("/import", s.handleImport)

		layouts := api.Group("/layouts")
		{
			layouts.GET("", s.handleListLayouts)
			layouts.POST("/:name", s.handleSaveLayout)
			layouts.POST("/:name/load", s.handleLoadLayout)
			layouts.DELETE("/:name", s.handleDeleteLayout)
		}
	}
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
