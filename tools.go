package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"rssi-heatmap.klederson.com/internal/beacon"
)

func newRadiusCmd() *cobra.Command {
	var rssi float64

	cmd := &cobra.Command{
		Use:   "radius",
		Short: "Compute the heatmap radius for a reading",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			calc, err := cfg.NewCalculator()
			if err != nil {
				return err
			}

			res, err := calc.ComputeRadius(rssi, cfg.DefaultBeacon)
			if err != nil {
				return err
			}
			color := beacon.ColorFor(rssi)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "beacon:               %s\n", cfg.DefaultBeacon)
			fmt.Fprintf(out, "rssi:                 %.1f dBm\n", rssi)
			fmt.Fprintf(out, "radius:               %.2f m\n", res.Radius)
			fmt.Fprintf(out, "visible:              %t\n", res.Visible())
			fmt.Fprintf(out, "calibration offset:   %+.1f dB\n", res.Debug.CalibrationOffset)
			fmt.Fprintf(out, "compensated rssi:     %.1f dBm\n", res.Debug.CompensatedRSSI)
			fmt.Fprintf(out, "measurement distance: %.4f m\n", res.Debug.MeasurementDistance)
			fmt.Fprintf(out, "max distance:         %.4f m\n", res.Debug.MaxDistance)
			fmt.Fprintf(out, "intensity:            %.3f\n", beacon.IntensityFor(rssi))
			fmt.Fprintf(out, "color:                %s %s\n", color.Hex(), color)
			return nil
		},
	}
	cmd.Flags().Float64Var(&rssi, "rssi", -60, "Received signal strength (dBm)")
	return cmd
}

func newBeaconsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "beacons",
		Short: "List the beacon catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ref := cfg.Catalog.Reference()
			rows := [][]string{{ref.ID, ref.DisplayName, fmt.Sprintf("%.0f", ref.MeasuredPower), "reference"}}
			for _, p := range cfg.Catalog.Profiles() {
				note := ""
				if p.ID == cfg.DefaultBeacon {
					note = "default"
				}
				offset := ref.MeasuredPower - p.MeasuredPower
				rows = append(rows, []string{p.ID, p.DisplayName, fmt.Sprintf("%.0f (%+.0f)", p.MeasuredPower, offset), note})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "NAME", "MEASURED POWER", "").
				Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			fmt.Fprintf(cmd.OutOrStdout(), "noise floor %.0f dBm, path loss exponent %.1f\n",
				cfg.Calibration.NoiseFloor, cfg.Calibration.PathLossExponent)
			return nil
		},
	}
}
