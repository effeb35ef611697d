package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rssi-heatmap.klederson.com/internal/api"
	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/feed"
	"rssi-heatmap.klederson.com/internal/heatmap"
	"rssi-heatmap.klederson.com/internal/logging"
	"rssi-heatmap.klederson.com/internal/storage"
)

func newServeCmd() *cobra.Command {
	var (
		addr      string
		dbPath    string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the heatmap over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Setup(flagLogLevel, logFormat, os.Stderr); err != nil {
				return err
			}
			if logrus.GetLevel() < logrus.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := newStore(cfg)
			if err != nil {
				return err
			}
			layouts, err := storage.Open(dbPath)
			if err != nil {
				return err
			}
			defer layouts.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if src := readingSource(cfg); src != nil {
				sink := func(r heatmap.Reading) {
					if _, err := store.AddReading(r); err != nil {
						logrus.WithError(err).WithField("source", r.Source).Warn("reading rejected")
					}
				}
				if err := src.Start(ctx, sink); err != nil {
					return err
				}
				defer src.Stop()
				go evictLoop(ctx, store)
			}

			srv := api.NewServer(store, layouts, centerOf(cfg))
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "HTTP listen address")
	cmd.Flags().StringVar(&dbPath, "db", config.DefaultDBPath, "SQLite database for saved layouts")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	return cmd
}

// evictLoop drops feed samples whose source has gone quiet.
func evictLoop(ctx context.Context, store *heatmap.Store) {
	ticker := time.NewTicker(config.EvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Evict(config.FreshWindow)
		}
	}
}

// readingSource picks the feed for the server: demo readings, live BLE
// when beacon MACs are configured, or none (points arrive over the API).
func readingSource(cfg *config.Config) feed.Source {
	switch {
	case flagDemo:
		return feed.NewDemoFeed(centerOf(cfg), cfg.Catalog.IDs(), time.Now().UnixNano())
	case len(cfg.BeaconMACs) > 0:
		return feed.NewBLEScanner(centerOf(cfg), cfg.BeaconMACs)
	default:
		logrus.Info("no reading feed; add points through the API")
		return nil
	}
}
