package app

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/heatmap"
	"rssi-heatmap.klederson.com/internal/storage"
)

func init() {
	logrus.SetLevel(logrus.PanicLevel)
}

var center = heatmap.Location{Lat: config.CenterLat, Lng: config.CenterLng}

func newTestModel(t *testing.T, layouts *storage.LayoutStore) AppModel {
	t.Helper()
	cfg := config.Default()
	calc, err := cfg.NewCalculator()
	require.NoError(t, err)
	store, err := heatmap.NewStore(calc, cfg.DefaultBeacon)
	require.NoError(t, err)
	return New(Options{Config: cfg, Store: store, Layouts: layouts, Demo: true, Operator: center})
}

func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(AppModel)
	require.True(t, ok)
	return am, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func reading(source string, rssi float64, beaconID string) ReadingMsg {
	return ReadingMsg{Reading: heatmap.Reading{
		Location: center,
		RSSI:     rssi,
		BeaconID: beaconID,
		Source:   source,
		At:       time.Now(),
	}}
}

func TestReadings(t *testing.T) {
	m := newTestModel(t, nil)

	m, _ = update(t, m, reading("HUB-01", -60, "GO_500"))
	m, _ = update(t, m, reading("HUB-02", -70, ""))
	m, _ = update(t, m, reading("HUB-03", -95, "BOX")) // zero radius, suppressed
	require.Len(t, m.samples, 2)
	assert.Equal(t, "GO_500", m.samples[1].BeaconID, "empty beacon uses the default type")
	assert.True(t, m.hasReading)
	assert.Equal(t, -95.0, m.lastRSSI)

	assert.Equal(t, []float64{-60, -70}, m.shared.history["GO_500"].Values())
	assert.Equal(t, 1, m.shared.history["BOX"].Len())

	h, ok := m.shared.store.Handle(m.samples[0].ID)
	require.True(t, ok)
	assert.Equal(t, "HUB-01", h.(marker).source)

	m, _ = update(t, m, reading("HUB-04", -60, "NOPE"))
	assert.True(t, m.isError)
	assert.Len(t, m.samples, 2)
}

func TestPauseIgnoresReadings(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = update(t, m, key("p"))
	assert.False(t, m.scanning)

	m, _ = update(t, m, reading("HUB-01", -60, "GO_500"))
	assert.Equal(t, 0, m.shared.store.Len())

	m, _ = update(t, m, key("s"))
	m, _ = update(t, m, reading("HUB-01", -60, "GO_500"))
	assert.Equal(t, 1, m.shared.store.Len())
}

func TestCursorAndDelete(t *testing.T) {
	m := newTestModel(t, nil)
	for i, rssi := range []float64{-50, -60, -70} {
		m, _ = update(t, m, reading(fmt.Sprintf("HUB-%02d", i), rssi, "GO_500"))
	}

	m, _ = update(t, m, key("j"))
	m, _ = update(t, m, key("j"))
	m, _ = update(t, m, key("j"))
	assert.Equal(t, 2, m.cursor, "cursor stops at the last point")

	m, _ = update(t, m, key("k"))
	assert.Equal(t, 1, m.cursor)

	m, _ = update(t, m, key("d"))
	require.Len(t, m.samples, 2)
	assert.Equal(t, -50.0, m.samples[0].RSSI)
	assert.Equal(t, -70.0, m.samples[1].RSSI)

	m, _ = update(t, m, key("j"))
	m, _ = update(t, m, key("d"))
	assert.Equal(t, 0, m.cursor, "cursor clamps after deleting the last point")

	m, _ = update(t, m, key("c"))
	assert.Empty(t, m.samples)
	m, _ = update(t, m, key("d"))
	assert.False(t, m.isError)
}

func TestBeaconCycleAndRadius(t *testing.T) {
	m := newTestModel(t, nil)
	store := m.shared.store

	m, _ = update(t, m, key("b"))
	assert.Equal(t, "BOX", store.BeaconType())
	for i := 0; i < 5; i++ {
		m, _ = update(t, m, key("b"))
	}
	assert.Equal(t, "GO_500", store.BeaconType(), "wraps around the catalog")

	m, _ = update(t, m, key("+"))
	assert.Equal(t, 1.5, store.LayerRadiusSetting())
	for i := 0; i < 5; i++ {
		m, _ = update(t, m, key("-"))
	}
	assert.Equal(t, layerRadiusStep, store.LayerRadiusSetting())
}

func TestDetailToggle(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = update(t, m, key("enter"))
	assert.False(t, m.showDetail, "no detail without points")

	m, _ = update(t, m, reading("HUB-01", -60, "GO_500"))
	m, _ = update(t, m, key("enter"))
	assert.True(t, m.showDetail)

	d := m.detail()
	assert.Equal(t, "GO_500", d.Profile.ID)
	assert.Equal(t, 5.0, d.Debug.CalibrationOffset)
	assert.Equal(t, "HUB-01", d.Source)
	assert.Equal(t, []float64{-60}, d.History)
	assert.Equal(t, -60.0, d.Mean)

	m, _ = update(t, m, key("esc"))
	assert.False(t, m.showDetail)
}

func TestView(t *testing.T) {
	m := newTestModel(t, nil)
	assert.Contains(t, m.View(), "Initializing")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, reading("HUB-01", -60, "GO_500"))
	out := m.View()
	assert.Contains(t, out, "POINTS [1]")
	assert.Contains(t, out, "Source: demo")

	m, _ = update(t, m, key("enter"))
	assert.Contains(t, m.View(), "POINT #0")
}

func TestExportLayout(t *testing.T) {
	m := newTestModel(t, nil)
	m, cmd := update(t, m, key("e"))
	assert.Nil(t, cmd)
	assert.True(t, m.isError)

	layouts, err := storage.Open(filepath.Join(t.TempDir(), "layouts.db"))
	require.NoError(t, err)
	defer layouts.Close()

	m = newTestModel(t, layouts)
	m, _ = update(t, m, reading("HUB-01", -60, "GO_500"))
	m, cmd = update(t, m, key("e"))
	require.NotNil(t, cmd)

	msg := cmd()
	saved, ok := msg.(layoutSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)
	assert.Equal(t, 1, saved.points)

	m, _ = update(t, m, msg)
	assert.False(t, m.isError)
	assert.Contains(t, m.message, "saved layout")

	list, err := layouts.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].PointCount)
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, nil)
	_, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestReadings_OneRowPerHub(t *testing.T) {
	m := newTestModel(t, nil)
	for i := 0; i < 50; i++ {
		m, _ = update(t, m, reading("HUB-01", -60-float64(i%5), "GO_500"))
		m, _ = update(t, m, reading("HUB-02", -70, "GO_500"))
	}
	require.Len(t, m.samples, 2)
	assert.Equal(t, -64.0, m.samples[0].RSSI)
	assert.Equal(t, config.HistoryCapacity, m.shared.history["GO_500"].Len())
}

func TestEvictDropsQuietHubs(t *testing.T) {
	m := newTestModel(t, nil)
	_, err := m.shared.store.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)

	stale := reading("HUB-01", -60, "GO_500")
	stale.Reading.At = time.Now().Add(-time.Minute)
	m, _ = update(t, m, stale)
	m, _ = update(t, m, reading("HUB-02", -60, "GO_500"))
	require.Len(t, m.samples, 3)

	m, cmd := update(t, m, EvictMsg(time.Now()))
	assert.NotNil(t, cmd, "eviction reschedules itself")
	require.Len(t, m.samples, 2)
	d := m.shared.store.Samples()
	assert.Equal(t, -60.0, d[1].RSSI)
	h, ok := m.shared.store.Handle(d[1].ID)
	require.True(t, ok)
	assert.Equal(t, "HUB-02", h.(marker).source)
}

func TestRetypeSelectedPoint(t *testing.T) {
	m := newTestModel(t, nil)
	_, err := m.shared.store.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)
	_, err = m.shared.store.AddPoint(center, -80, "GO_500")
	require.NoError(t, err)
	m, _ = update(t, m, TickMsg(time.Now()))

	require.NoError(t, m.shared.store.SetBeaconType("COIN_250"))
	m, _ = update(t, m, key("t"))
	require.Len(t, m.samples, 2)
	assert.Equal(t, "COIN_250", m.samples[0].BeaconID)
	assert.Equal(t, 12.47, m.samples[0].Radius)
	assert.Contains(t, m.message, "COIN_250")

	// -80 dBm has no radius as a COIN_250
	m, _ = update(t, m, key("j"))
	m, _ = update(t, m, key("t"))
	require.Len(t, m.samples, 1)
	assert.Contains(t, m.message, "removed")
	assert.False(t, m.isError)
}
