package heatmap

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rssi-heatmap.klederson.com/internal/beacon"
	"rssi-heatmap.klederson.com/internal/config"
)

// ErrSampleNotFound is returned for ids that are not in the store.
var ErrSampleNotFound = errors.New("sample not found")

// IndexError is returned for positions outside the store.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("sample index %d out of range [0,%d)", e.Index, e.Len)
}

type entry struct {
	sample Sample
	handle any
	source string // feed source that owns the sample, "" for manual points
	seen   time.Time
}

// Store is an ordered collection of heatmap samples. Iteration order is
// insertion order. Each sample can carry an opaque handle for the UI
// element that represents it (a marker, a list row).
//
// Readings whose radius is 0 are never stored. Feed readings keep one
// sample per source; those samples are dropped by Evict once the source goes
// quiet. Mutations are serialized by a mutex; readers get copies.
type Store struct {
	mu          sync.RWMutex
	calc        *beacon.Calculator
	order       []string
	entries     map[string]*entry
	sources     map[string]string // source -> sample id
	beaconType  string
	layerRadius float64
	listeners   []func()
	newID       func() string
	now         func() time.Time
}

// NewStore creates an empty store. defaultBeacon is used by
// AddPointDefault and by imports that carry no beacon type.
func NewStore(calc *beacon.Calculator, defaultBeacon string) (*Store, error) {
	if calc == nil {
		return nil, errors.New("nil radius calculator")
	}
	if !calc.Catalog().Has(defaultBeacon) {
		return nil, &beacon.UnknownBeaconError{ID: defaultBeacon}
	}
	return &Store{
		calc:        calc,
		entries:     make(map[string]*entry),
		sources:     make(map[string]string),
		beaconType:  defaultBeacon,
		layerRadius: config.DefaultLayerRadius,
		newID:       func() string { return uuid.New().String() },
		now:         time.Now,
	}, nil
}

// OnChange registers fn to run after every mutation. Listeners run outside
// the store lock, on the mutating goroutine.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	ls := make([]func(), len(s.listeners))
	copy(ls, s.listeners)
	s.mu.RUnlock()
	for _, fn := range ls {
		fn()
	}
}

// Calculator returns the radius calculator the store derives samples with.
func (s *Store) Calculator() *beacon.Calculator {
	return s.calc
}

// SetBeaconType changes the default beacon type.
func (s *Store) SetBeaconType(id string) error {
	if !s.calc.Catalog().Has(id) {
		return &beacon.UnknownBeaconError{ID: id}
	}
	s.mu.Lock()
	s.beaconType = id
	s.mu.Unlock()
	return nil
}

// BeaconType returns the default beacon type.
func (s *Store) BeaconType() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.beaconType
}

// SetLayerRadius sets the heat layer radius (meters) used for readings at
// or above config.LayerRadiusCutoff.
func (s *Store) SetLayerRadius(meters float64) error {
	if meters <= 0 {
		return fmt.Errorf("layer radius must be positive, got %v", meters)
	}
	s.mu.Lock()
	s.layerRadius = meters
	s.mu.Unlock()
	s.notify()
	return nil
}

// LayerRadiusSetting returns the slider value last given to SetLayerRadius.
func (s *Store) LayerRadiusSetting() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layerRadius
}

// LayerRadius returns the radius (meters) the heat layer is drawn with.
// It is keyed off the first sample: strong readings use the slider value,
// weaker ones their own computed radius.
func (s *Store) LayerRadius() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return s.layerRadius
	}
	first := s.entries[s.order[0]].sample
	if first.RSSI >= config.LayerRadiusCutoff {
		return s.layerRadius
	}
	return first.Radius
}

// build derives a sample from a reading. It returns nil when the reading's
// radius is 0.
func (s *Store) build(loc Location, rssi float64, beaconID string) (*Sample, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	res, err := s.calc.ComputeRadius(rssi, beaconID)
	if err != nil {
		return nil, err
	}
	if !res.Visible() {
		logrus.WithFields(logrus.Fields{
			"rssi":   rssi,
			"beacon": beaconID,
		}).Debug("point skipped due to zero radius")
		return nil, nil
	}
	return &Sample{
		ID:        s.newID(),
		Location:  loc,
		Intensity: beacon.IntensityFor(rssi),
		RSSI:      rssi,
		BeaconID:  beaconID,
		Radius:    res.Radius,
	}, nil
}

// rederive recomputes smp for a new reading, keeping its id. It returns nil
// when the new radius is 0.
func (s *Store) rederive(smp Sample, loc Location, rssi float64, beaconID string) (*Sample, error) {
	next, err := s.build(loc, rssi, beaconID)
	if err != nil || next == nil {
		return nil, err
	}
	next.ID = smp.ID
	return next, nil
}

// AddPoint derives a sample from the reading and appends it. It returns
// nil and stores nothing when the reading's radius is 0.
func (s *Store) AddPoint(loc Location, rssi float64, beaconID string) (*Sample, error) {
	sample, err := s.build(loc, rssi, beaconID)
	if err != nil || sample == nil {
		return nil, err
	}

	s.mu.Lock()
	s.order = append(s.order, sample.ID)
	s.entries[sample.ID] = &entry{sample: *sample}
	s.mu.Unlock()

	s.notify()
	return sample, nil
}

// AddPointDefault adds a point using the default beacon type.
func (s *Store) AddPointDefault(loc Location, rssi float64) (*Sample, error) {
	return s.AddPoint(loc, rssi, s.BeaconType())
}

// AddReading stores a feed reading. A reading with a Source replaces the
// sample that source produced last, keeping its position and handle; when
// the new radius is 0 that sample is removed. A reading without a Source is
// appended like AddPoint. An empty BeaconID means the default beacon type.
func (s *Store) AddReading(r Reading) (*Sample, error) {
	id := r.BeaconID
	if id == "" {
		id = s.BeaconType()
	}
	if r.Source == "" {
		return s.AddPoint(r.Location, r.RSSI, id)
	}
	seen := r.At
	if seen.IsZero() {
		seen = s.now()
	}

	fresh, err := s.build(r.Location, r.RSSI, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	sampleID, known := s.sources[r.Source]
	switch {
	case known && fresh == nil:
		s.removeLocked(s.indexOfLocked(sampleID), sampleID)
	case known:
		e := s.entries[sampleID]
		fresh.ID = sampleID
		e.sample = *fresh
		e.seen = seen
	case fresh != nil:
		s.order = append(s.order, fresh.ID)
		s.entries[fresh.ID] = &entry{sample: *fresh, source: r.Source, seen: seen}
		s.sources[r.Source] = fresh.ID
	}
	s.mu.Unlock()

	if known || fresh != nil {
		s.notify()
	}
	return fresh, nil
}

// Evict removes feed samples whose source has not reported within maxAge.
// Manually placed points are never evicted. Returns the number removed.
func (s *Store) Evict(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	var stale []string
	for _, id := range s.order {
		e := s.entries[id]
		if e.source != "" && e.seen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		s.removeLocked(s.indexOfLocked(id), id)
	}
	s.mu.Unlock()

	if len(stale) > 0 {
		logrus.WithField("count", len(stale)).Debug("stale feed samples evicted")
		s.notify()
	}
	return len(stale)
}

func (s *Store) idAt(index int) (string, error) {
	if index < 0 || index >= len(s.order) {
		return "", &IndexError{Index: index, Len: len(s.order)}
	}
	return s.order[index], nil
}

// UpdatePointLocation moves the sample at index. Intensity and radius are
// left as they are: moving a marker is not a new reading.
func (s *Store) UpdatePointLocation(index int, loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	id, err := s.idAt(index)
	if err == nil {
		s.entries[id].sample.Location = loc
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// UpdateLocation moves the sample with the given id.
func (s *Store) UpdateLocation(id string, loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		e.sample.Location = loc
	}
	s.mu.Unlock()
	if !ok {
		return ErrSampleNotFound
	}
	s.notify()
	return nil
}

// UpdatePointReading replaces the RSSI and beacon type of the sample at
// index and recomputes its radius and intensity. Location, id and handle are
// kept. When the new radius is 0 the sample is removed and nil is returned,
// as AddPoint would not have stored it. An empty beaconID keeps the sample's
// beacon type.
func (s *Store) UpdatePointReading(index int, rssi float64, beaconID string) (*Sample, error) {
	s.mu.RLock()
	id, err := s.idAt(index)
	var cur Sample
	if err == nil {
		cur = s.entries[id].sample
	}
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if beaconID == "" {
		beaconID = cur.BeaconID
	}

	next, err := s.rederive(cur, cur.Location, rssi, beaconID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		if next == nil {
			s.removeLocked(s.indexOfLocked(id), id)
		} else {
			next.Location = e.sample.Location
			e.sample = *next
		}
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrSampleNotFound
	}
	s.notify()
	return next, nil
}

// DeletePoint removes the sample at index. Later samples shift down by one.
func (s *Store) DeletePoint(index int) error {
	s.mu.Lock()
	id, err := s.idAt(index)
	if err == nil {
		s.removeLocked(index, id)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// Delete removes the sample with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	index := s.indexOfLocked(id)
	if index >= 0 {
		s.removeLocked(index, id)
	}
	s.mu.Unlock()
	if index < 0 {
		return ErrSampleNotFound
	}
	s.notify()
	return nil
}

func (s *Store) removeLocked(index int, id string) {
	if e, ok := s.entries[id]; ok && e.source != "" {
		delete(s.sources, e.source)
	}
	s.order = append(s.order[:index], s.order[index+1:]...)
	delete(s.entries, id)
}

func (s *Store) indexOfLocked(id string) int {
	for i, v := range s.order {
		if v == id {
			return i
		}
	}
	return -1
}

// IndexOf returns the position of id, or -1.
func (s *Store) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfLocked(id)
}

// SetHandle attaches an opaque UI handle to a sample.
func (s *Store) SetHandle(id string, h any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return ErrSampleNotFound
	}
	e.handle = h
	return nil
}

// Handle returns the UI handle attached to a sample.
func (s *Store) Handle(id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.handle, e.handle != nil
}

// Clear removes every sample.
func (s *Store) Clear() {
	s.mu.Lock()
	s.order = nil
	s.entries = make(map[string]*entry)
	s.sources = make(map[string]string)
	s.mu.Unlock()
	s.notify()
}

// ExportSamples returns every sample in order with its original RSSI and
// beacon type, ready for ImportSamples.
func (s *Store) ExportSamples() []ExportedSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ExportedSample, 0, len(s.order))
	for _, id := range s.order {
		smp := s.entries[id].sample
		out = append(out, ExportedSample{
			Lat:    smp.Location.Lat,
			Lng:    smp.Location.Lng,
			RSSI:   smp.RSSI,
			Beacon: smp.BeaconID,
		})
	}
	return out
}

// ImportSamples replaces the store's contents with samples, in order.
// Entries whose radius is 0 are dropped, as AddPoint would. If any entry
// fails (unknown beacon, bad location) nothing is changed.
func (s *Store) ImportSamples(samples []ExportedSample) (ImportResult, error) {
	def := s.BeaconType()

	var res ImportResult
	built := make([]*Sample, 0, len(samples))
	for i, in := range samples {
		id := in.Beacon
		if id == "" {
			id = def
		}
		smp, err := s.build(Location{Lat: in.Lat, Lng: in.Lng}, in.RSSI, id)
		if err != nil {
			return ImportResult{}, fmt.Errorf("import sample %d: %w", i, err)
		}
		if smp == nil {
			res.Dropped++
			continue
		}
		built = append(built, smp)
	}

	s.mu.Lock()
	s.order = make([]string, 0, len(built))
	s.entries = make(map[string]*entry, len(built))
	s.sources = make(map[string]string)
	for _, smp := range built {
		s.order = append(s.order, smp.ID)
		s.entries[smp.ID] = &entry{sample: *smp}
	}
	s.mu.Unlock()

	res.Imported = len(built)
	logrus.WithFields(logrus.Fields{
		"imported": res.Imported,
		"dropped":  res.Dropped,
	}).Info("heatmap samples imported")

	s.notify()
	return res, nil
}

// RenderableSamples returns the (lat, lng, intensity) triples with a
// positive intensity, in order.
func (s *Store) RenderableSamples() []HeatPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]HeatPoint, 0, len(s.order))
	for _, id := range s.order {
		smp := s.entries[id].sample
		if smp.Intensity <= 0 {
			continue
		}
		out = append(out, HeatPoint{smp.Location.Lat, smp.Location.Lng, smp.Intensity})
	}
	return out
}

// Samples returns a copy of every sample in order.
func (s *Store) Samples() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sample, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].sample)
	}
	return out
}

// At returns the sample at index.
func (s *Store) At(index int) (Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, err := s.idAt(index)
	if err != nil {
		return Sample{}, err
	}
	return s.entries[id].sample, nil
}

// Get returns the sample with the given id.
func (s *Store) Get(id string) (Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Sample{}, ErrSampleNotFound
	}
	return e.sample, nil
}

// Len returns the number of stored samples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Nearest returns the sample closest to loc within maxMeters, with its
// index. ok is false when nothing is in range.
func (s *Store) Nearest(loc Location, maxMeters float64) (smp Sample, index int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := maxMeters
	index = -1
	for i, id := range s.order {
		cand := s.entries[id].sample
		if d := Distance(loc, cand.Location); d <= best {
			best = d
			smp, index, ok = cand, i, true
		}
	}
	return smp, index, ok
}
