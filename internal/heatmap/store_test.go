package heatmap

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssi-heatmap.klederson.com/internal/beacon"
	"rssi-heatmap.klederson.com/internal/config"
)

var center = Location{Lat: config.CenterLat, Lng: config.CenterLng}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	calc, err := config.Default().NewCalculator()
	require.NoError(t, err)
	s, err := NewStore(calc, config.DefaultBeacon)
	require.NoError(t, err)
	return s
}

func TestNewStore_Errors(t *testing.T) {
	_, err := NewStore(nil, "GO_500")
	assert.Error(t, err)

	calc, err := config.Default().NewCalculator()
	require.NoError(t, err)
	_, err = NewStore(calc, "NOPE")
	var unknown *beacon.UnknownBeaconError
	assert.ErrorAs(t, err, &unknown)
}

func TestAddPoint(t *testing.T) {
	s := newTestStore(t)

	smp, err := s.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)
	require.NotNil(t, smp)
	assert.Equal(t, center, smp.Location)
	assert.InDelta(t, 0.625, smp.Intensity, 1e-12)
	assert.Equal(t, 26.98, smp.Radius)
	assert.Equal(t, -60.0, smp.RSSI)
	assert.Equal(t, "GO_500", smp.BeaconID)
	assert.NotEmpty(t, smp.ID)
	assert.Equal(t, 1, s.Len())
}

func TestAddPoint_ZeroRadiusNotStored(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)

	smp, err := s.AddPoint(center, -90, "GO_500")
	require.NoError(t, err)
	assert.Nil(t, smp)
	assert.Equal(t, 1, s.Len())
}

func TestAddPoint_Errors(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddPoint(center, -60, "NOPE")
	var radiusErr *beacon.RadiusCalculationError
	assert.ErrorAs(t, err, &radiusErr)

	_, err = s.AddPoint(Location{Lat: 95, Lng: 0}, -60, "GO_500")
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestAddReading_DefaultBeacon(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetBeaconType("COIN_250"))

	smp, err := s.AddReading(Reading{Location: center, RSSI: -50})
	require.NoError(t, err)
	require.NotNil(t, smp)
	assert.Equal(t, "COIN_250", smp.BeaconID)

	smp, err = s.AddPointDefault(center, -55)
	require.NoError(t, err)
	require.NotNil(t, smp)
	assert.Equal(t, "COIN_250", smp.BeaconID)

	assert.Error(t, s.SetBeaconType("NOPE"))
	assert.Equal(t, "COIN_250", s.BeaconType())
}

func TestUpdatePointLocation(t *testing.T) {
	s := newTestStore(t)
	orig, err := s.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)

	moved := Offset(center, 45, 10)
	require.NoError(t, s.UpdatePointLocation(0, moved))

	got, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, moved, got.Location)
	assert.Equal(t, orig.Intensity, got.Intensity)
	assert.Equal(t, orig.Radius, got.Radius)

	err = s.UpdatePointLocation(3, moved)
	var idxErr *IndexError
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, 3, idxErr.Index)
	assert.Equal(t, 1, idxErr.Len)

	require.NoError(t, s.UpdateLocation(orig.ID, center))
	got, _ = s.Get(orig.ID)
	assert.Equal(t, center, got.Location)
	assert.ErrorIs(t, s.UpdateLocation("missing", center), ErrSampleNotFound)
}

func TestDeletePoint_ShiftsIndices(t *testing.T) {
	s := newTestStore(t)
	for _, rssi := range []float64{-40, -50, -60} {
		_, err := s.AddPoint(center, rssi, "GO_500")
		require.NoError(t, err)
	}

	require.NoError(t, s.DeletePoint(1))
	require.Equal(t, 2, s.Len())

	first, _ := s.At(0)
	second, _ := s.At(1)
	assert.Equal(t, -40.0, first.RSSI)
	assert.Equal(t, -60.0, second.RSSI)
	assert.Equal(t, 1, s.IndexOf(second.ID))

	var idxErr *IndexError
	assert.ErrorAs(t, s.DeletePoint(2), &idxErr)
	assert.ErrorAs(t, s.DeletePoint(-1), &idxErr)

	require.NoError(t, s.Delete(first.ID))
	assert.Equal(t, 0, s.IndexOf(second.ID))
	assert.True(t, errors.Is(s.Delete(first.ID), ErrSampleNotFound))
}

func TestHandles(t *testing.T) {
	s := newTestStore(t)
	smp, err := s.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)

	_, ok := s.Handle(smp.ID)
	assert.False(t, ok)

	require.NoError(t, s.SetHandle(smp.ID, "marker-1"))
	h, ok := s.Handle(smp.ID)
	assert.True(t, ok)
	assert.Equal(t, "marker-1", h)

	assert.ErrorIs(t, s.SetHandle("missing", 1), ErrSampleNotFound)

	require.NoError(t, s.DeletePoint(0))
	_, ok = s.Handle(smp.ID)
	assert.False(t, ok, "handle goes with its sample")
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := newTestStore(t)
	inputs := []struct {
		rssi float64
		id   string
	}{
		{-45, "GO_500"}, {-60, "BOX"}, {-70, "COIN_250"}, {-30, "BEACON_6"},
	}
	for i, in := range inputs {
		_, err := src.AddPoint(Offset(center, float64(i)*90, 15), in.rssi, in.id)
		require.NoError(t, err)
	}

	exported := src.ExportSamples()
	require.Len(t, exported, len(inputs))
	assert.Equal(t, "BOX", exported[1].Beacon)

	dst := newTestStore(t)
	res, err := dst.ImportSamples(exported)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 4}, res)

	if diff := cmp.Diff(src.Samples(), dst.Samples(), cmpopts.IgnoreFields(Sample{}, "ID")); diff != "" {
		t.Errorf("round trip mismatch (-src +dst):\n%s", diff)
	}
}

func TestImportSamples_DropsZeroRadius(t *testing.T) {
	s := newTestStore(t)

	// Exports from stores that kept zero-radius points do not survive a
	// re-import: the -95 dBm entry is dropped.
	res, err := s.ImportSamples([]ExportedSample{
		{Lat: center.Lat, Lng: center.Lng, RSSI: -50},
		{Lat: center.Lat, Lng: center.Lng, RSSI: -95},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 1, Dropped: 1}, res)
	assert.Equal(t, 1, s.Len())

	smp, _ := s.At(0)
	assert.Equal(t, config.DefaultBeacon, smp.BeaconID, "missing beacon uses the default")
}

func TestImportSamples_FailureLeavesStoreUntouched(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)

	_, err = s.ImportSamples([]ExportedSample{
		{Lat: center.Lat, Lng: center.Lng, RSSI: -50},
		{Lat: center.Lat, Lng: center.Lng, RSSI: -50, Beacon: "NOPE"},
	})
	var unknown *beacon.UnknownBeaconError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, err.Error(), "import sample 1")

	require.Equal(t, 1, s.Len())
	smp, _ := s.At(0)
	assert.Equal(t, -60.0, smp.RSSI)
}

func TestRenderableSamples(t *testing.T) {
	s := newTestStore(t)
	_, _ = s.AddPoint(center, -60, "GO_500")
	_, _ = s.AddPoint(center, -95, "GO_500")
	_, _ = s.AddPoint(Offset(center, 0, 5), -20, "GO_500")

	pts := s.RenderableSamples()
	require.Len(t, pts, 2)
	assert.Equal(t, center.Lat, pts[0].Lat())
	assert.Equal(t, center.Lng, pts[0].Lng())
	assert.InDelta(t, 0.625, pts[0].Intensity(), 1e-12)
	assert.InDelta(t, 0.125, pts[1].Intensity(), 1e-12)
	for _, p := range pts {
		assert.Greater(t, p.Intensity(), 0.0)
	}
}

func TestOnChange(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.OnChange(func() { calls++ })

	_, _ = s.AddPoint(center, -60, "GO_500")
	_, _ = s.AddPoint(center, -95, "GO_500") // suppressed, no change
	_ = s.UpdatePointLocation(0, center)
	_ = s.DeletePoint(5) // miss, no change
	_ = s.DeletePoint(0)
	s.Clear()

	assert.Equal(t, 4, calls)
}

func TestLayerRadius(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, config.DefaultLayerRadius, s.LayerRadius())

	_, _ = s.AddPoint(center, -60, "GO_500")
	assert.Equal(t, config.DefaultLayerRadius, s.LayerRadius())

	require.NoError(t, s.SetLayerRadius(5))
	assert.Equal(t, 5.0, s.LayerRadius())
	assert.Error(t, s.SetLayerRadius(0))

	// A wider noise floor keeps sub -89 dBm readings visible; the layer
	// then takes the first sample's own radius.
	cal := config.DefaultCalibration()
	cal.NoiseFloor = -100
	calc, err := beacon.NewCalculator(cal, config.DefaultCatalog())
	require.NoError(t, err)
	weak, err := NewStore(calc, "GO_500")
	require.NoError(t, err)

	smp, err := weak.AddPoint(center, -89.5, "GO_500")
	require.NoError(t, err)
	require.NotNil(t, smp)
	assert.InDelta(t, 23.46, weak.LayerRadius(), 0.01)
	assert.Equal(t, smp.Radius, weak.LayerRadius())
	assert.Equal(t, config.DefaultLayerRadius, weak.LayerRadiusSetting())
}

func TestNearest(t *testing.T) {
	s := newTestStore(t)
	_, _ = s.AddPoint(center, -60, "GO_500")
	far, _ := s.AddPoint(Offset(center, 90, 20), -50, "GO_500")

	smp, idx, ok := s.Nearest(Offset(center, 90, 18), 5)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, far.ID, smp.ID)

	_, idx, ok = s.Nearest(Offset(center, 180, 50), 5)
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
}

func TestAddReading_OneSamplePerSource(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	hubs := make([]Location, 8)
	for i := range hubs {
		hubs[i] = Offset(center, float64(i*45), 10)
	}
	for tick := 0; tick < 600; tick++ {
		for i, loc := range hubs {
			_, err := s.AddReading(Reading{
				Location: loc,
				RSSI:     -60 - float64(tick%10),
				BeaconID: "GO_500",
				Source:   fmt.Sprintf("HUB-%02d", i),
				At:       at.Add(time.Duration(tick) * time.Second),
			})
			require.NoError(t, err)
		}
	}

	assert.Equal(t, 8, s.Len())
	assert.Len(t, s.ExportSamples(), 8)
	for i, smp := range s.Samples() {
		assert.Equal(t, hubs[i], smp.Location)
		assert.Equal(t, -69.0, smp.RSSI)
	}
}

func TestAddReading_ReplacesInPlace(t *testing.T) {
	s := newTestStore(t)
	manual, err := s.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)

	first, err := s.AddReading(Reading{Location: center, RSSI: -50, BeaconID: "GO_500", Source: "HUB-01"})
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NoError(t, s.SetHandle(first.ID, "marker"))

	next, err := s.AddReading(Reading{Location: center, RSSI: -70, BeaconID: "GO_500", Source: "HUB-01"})
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, first.ID, next.ID)
	assert.Equal(t, 21.62, next.Radius)
	assert.InDelta(t, 0.75, next.Intensity, 1e-12)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.IndexOf(first.ID))
	assert.Equal(t, 0, s.IndexOf(manual.ID))
	h, ok := s.Handle(first.ID)
	assert.True(t, ok)
	assert.Equal(t, "marker", h)
}

func TestAddReading_ZeroRadiusRemovesSourceSample(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddReading(Reading{Location: center, RSSI: -60, BeaconID: "GO_500", Source: "HUB-01"})
	require.NoError(t, err)

	changes := 0
	s.OnChange(func() { changes++ })

	smp, err := s.AddReading(Reading{Location: center, RSSI: -86, BeaconID: "GO_500", Source: "HUB-01"})
	require.NoError(t, err)
	assert.Nil(t, smp)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, changes)

	// Nothing stored for the source any more, so nothing to notify.
	_, err = s.AddReading(Reading{Location: center, RSSI: -86, BeaconID: "GO_500", Source: "HUB-01"})
	require.NoError(t, err)
	assert.Equal(t, 1, changes)

	smp, err = s.AddReading(Reading{Location: center, RSSI: -60, BeaconID: "GO_500", Source: "HUB-01"})
	require.NoError(t, err)
	require.NotNil(t, smp)
	assert.Equal(t, 1, s.Len())
}

func TestAddReading_WithoutSourceAppends(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		_, err := s.AddReading(Reading{Location: center, RSSI: -60})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Len())
}

func TestEvict(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	manual, err := s.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)
	_, err = s.AddReading(Reading{Location: center, RSSI: -60, Source: "HUB-01", At: now.Add(-10 * time.Second)})
	require.NoError(t, err)
	fresh, err := s.AddReading(Reading{Location: center, RSSI: -60, Source: "HUB-02", At: now.Add(-2 * time.Second)})
	require.NoError(t, err)
	// No timestamp: stamped with the store clock.
	_, err = s.AddReading(Reading{Location: center, RSSI: -60, Source: "HUB-03"})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Evict(5*time.Second))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 0, s.IndexOf(manual.ID))
	assert.Equal(t, 1, s.IndexOf(fresh.ID))

	now = now.Add(time.Hour)
	assert.Equal(t, 2, s.Evict(5*time.Second))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.Evict(5*time.Second))

	// An evicted source starts over at the end.
	smp, err := s.AddReading(Reading{Location: center, RSSI: -60, Source: "HUB-01"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.IndexOf(smp.ID))
}

func TestUpdatePointReading(t *testing.T) {
	s := newTestStore(t)
	orig, err := s.AddPoint(center, -60, "GO_500")
	require.NoError(t, err)
	_, err = s.AddPoint(center, -50, "GO_500")
	require.NoError(t, err)
	require.NoError(t, s.SetHandle(orig.ID, "marker"))

	got, err := s.UpdatePointReading(0, -60, "COIN_250")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, center, got.Location)
	assert.Equal(t, "COIN_250", got.BeaconID)
	assert.Equal(t, 12.47, got.Radius)
	assert.InDelta(t, 0.625, got.Intensity, 1e-12)
	h, _ := s.Handle(orig.ID)
	assert.Equal(t, "marker", h)

	// Empty beacon keeps the sample's type.
	got, err = s.UpdatePointReading(0, -50, "")
	require.NoError(t, err)
	assert.Equal(t, "COIN_250", got.BeaconID)
	assert.InDelta(t, 0.5, got.Intensity, 1e-12)

	_, err = s.UpdatePointReading(0, -60, "NOPE")
	var radiusErr *beacon.RadiusCalculationError
	assert.ErrorAs(t, err, &radiusErr)
	unchanged, _ := s.At(0)
	assert.Equal(t, -50.0, unchanged.RSSI)

	var idxErr *IndexError
	_, err = s.UpdatePointReading(5, -60, "")
	assert.ErrorAs(t, err, &idxErr)

	// Zero radius removes the sample.
	got, err = s.UpdatePointReading(0, -88, "")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, s.Len())
	_, err = s.Get(orig.ID)
	assert.ErrorIs(t, err, ErrSampleNotFound)
}
