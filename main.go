package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"rssi-heatmap.klederson.com/internal/app"
	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/heatmap"
	"rssi-heatmap.klederson.com/internal/logging"
	"rssi-heatmap.klederson.com/internal/storage"
)

var (
	flagDemo     bool
	flagAdapter  string
	flagConfig   string
	flagBeacon   string
	flagLat      float64
	flagLng      float64
	flagLogLevel string
	flagLogFile  string
	flagDB       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rssi-heatmap",
		Short: "RSSI Heatmap - Terminal beacon signal heatmap",
		Long: `RSSI Heatmap turns beacon signal strength readings into heatmap points.
Each reading is converted to a radius with a log-distance path loss model,
compensated for the beacon's calibrated transmit power.

Live scanning requires sudo or CAP_NET_ADMIN and a beacon_macs table in
the config file. Use --demo for simulated readings without Bluetooth hardware.`,
		SilenceUsage: true,
		RunE:         run,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagDemo, "demo", false, "Use simulated readings (no Bluetooth required)")
	pf.StringVar(&flagConfig, "config", "", "JSON config file (calibration, beacons, center, beacon_macs)")
	pf.StringVar(&flagBeacon, "beacon", "", "Default beacon type (overrides config)")
	pf.Float64Var(&flagLat, "lat", config.CenterLat, "Map center latitude")
	pf.Float64Var(&flagLng, "lng", config.CenterLng, "Map center longitude")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.Flags().StringVar(&flagAdapter, "adapter", "hci0", "Bluetooth adapter to use")
	rootCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file (default: discard)")
	rootCmd.Flags().StringVar(&flagDB, "db", "", "SQLite database for [E]xport (optional)")

	rootCmd.AddCommand(newServeCmd(), newRadiusCmd(), newBeaconsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies the command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagBeacon != "" {
		cfg.DefaultBeacon = flagBeacon
	}
	if cmd.Flags().Changed("lat") {
		cfg.Center.Lat = flagLat
	}
	if cmd.Flags().Changed("lng") {
		cfg.Center.Lng = flagLng
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newStore(cfg *config.Config) (*heatmap.Store, error) {
	calc, err := cfg.NewCalculator()
	if err != nil {
		return nil, err
	}
	return heatmap.NewStore(calc, cfg.DefaultBeacon)
}

func centerOf(cfg *config.Config) heatmap.Location {
	return heatmap.Location{Lat: cfg.Center.Lat, Lng: cfg.Center.Lng}
}

func run(cmd *cobra.Command, args []string) error {
	// The alt screen owns the terminal; logs go to a file or nowhere.
	logOut, err := logging.OpenFile(flagLogFile)
	if err != nil {
		return err
	}
	defer logOut.Close()
	if err := logging.Setup(flagLogLevel, "text", logOut); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	var layouts *storage.LayoutStore
	if flagDB != "" {
		layouts, err = storage.Open(flagDB)
		if err != nil {
			return err
		}
		defer layouts.Close()
	}

	model := app.New(app.Options{
		Config:   cfg,
		Store:    store,
		Layouts:  layouts,
		Demo:     flagDemo,
		Adapter:  flagAdapter,
		Operator: centerOf(cfg),
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(30),
	)

	// Start the feed with reference to the tea program
	if err := model.StartFeed(p); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
		fmt.Fprintln(os.Stderr, "Live scanning needs Bluetooth permissions and a beacon_macs table in --config.")
		fmt.Fprintln(os.Stderr, "Try one of:")
		fmt.Fprintln(os.Stderr, "  sudo ./rssi-heatmap --config beacons.json")
		fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./rssi-heatmap")
		fmt.Fprintln(os.Stderr, "  ./rssi-heatmap --demo    (demo mode, no hardware needed)")
		return err
	}
	defer model.StopFeed()

	_, err = p.Run()
	return err
}
