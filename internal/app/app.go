package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"rssi-heatmap.klederson.com/internal/config"
	"rssi-heatmap.klederson.com/internal/feed"
	"rssi-heatmap.klederson.com/internal/heatmap"
	"rssi-heatmap.klederson.com/internal/storage"
	"rssi-heatmap.klederson.com/internal/ui"
)

const layerRadiusStep = 0.5

// Options configures the viewer.
type Options struct {
	Config  *config.Config
	Store   *heatmap.Store
	Layouts *storage.LayoutStore // optional; enables [E]xport
	Demo    bool
	Adapter string
	// Operator is where live BLE readings are taken and where the map is
	// centred.
	Operator heatmap.Location
}

// marker is the handle the viewer attaches to each sample it adds.
type marker struct {
	source string
	seen   time.Time
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	cfg      *config.Config
	store    *heatmap.Store
	layouts  *storage.LayoutStore
	operator heatmap.Location
	source   feed.Source
	cancel   context.CancelFunc
	history  map[string]*RSSIRing // per beacon type
}

// AppModel is the root Bubble Tea model for the heatmap viewer.
type AppModel struct {
	width  int
	height int

	scanning   bool
	demoMode   bool
	adapter    string
	cursor     int
	showDetail bool

	message    string
	isError    bool
	lastRSSI   float64
	hasReading bool

	shared *shared

	// Cached snapshot
	samples []heatmap.Sample
}

// New creates a new AppModel.
func New(opts Options) AppModel {
	return AppModel{
		scanning: true,
		demoMode: opts.Demo,
		adapter:  opts.Adapter,
		shared: &shared{
			cfg:      opts.Config,
			store:    opts.Store,
			layouts:  opts.Layouts,
			operator: opts.Operator,
			history:  make(map[string]*RSSIRing),
		},
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		evictCmd(),
	)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case EvictMsg:
		m.shared.store.Evict(config.FreshWindow)
		m.refresh()
		return m, evictCmd()

	case ReadingMsg:
		if m.scanning {
			m.addReading(msg.Reading)
		}
		return m, nil

	case FeedErrorMsg:
		m.setError(msg.Err)
		return m, nil

	case layoutSavedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setMessage(fmt.Sprintf("saved layout %s (%d points)", msg.name, msg.points))
		}
		return m, nil
	}

	return m, nil
}

func (m *AppModel) addReading(r heatmap.Reading) {
	s := m.shared
	sample, err := s.store.AddReading(r)
	if err != nil {
		m.setError(err)
		return
	}

	id := r.BeaconID
	if id == "" {
		id = s.store.BeaconType()
	}
	ring, ok := s.history[id]
	if !ok {
		ring = NewRSSIRing(config.HistoryCapacity)
		s.history[id] = ring
	}
	ring.Push(r.RSSI)
	m.lastRSSI = r.RSSI
	m.hasReading = true

	if sample != nil {
		_ = s.store.SetHandle(sample.ID, marker{source: r.Source, seen: r.At})
	}
	m.refresh()
}

// refresh re-reads the store snapshot and keeps the cursor in range.
func (m *AppModel) refresh() {
	m.samples = m.shared.store.Samples()
	if m.cursor >= len(m.samples) {
		m.cursor = len(m.samples) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if len(m.samples) == 0 {
		m.showDetail = false
	}
}

func (m *AppModel) setMessage(msg string) {
	m.message = msg
	m.isError = false
}

func (m *AppModel) setError(err error) {
	logrus.WithError(err).Warn("viewer error")
	m.message = err.Error()
	m.isError = true
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	store := m.shared.store

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.StopFeed()
		return m, tea.Quit

	case "s", "S":
		m.scanning = true

	case "p", "P":
		m.scanning = false

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.samples)-1 {
			m.cursor++
		}

	case "home":
		m.cursor = 0

	case "end":
		if len(m.samples) > 0 {
			m.cursor = len(m.samples) - 1
		}

	case "enter":
		m.showDetail = len(m.samples) > 0 && !m.showDetail

	case "esc":
		m.showDetail = false

	case "d", "D", "delete":
		if len(m.samples) == 0 {
			break
		}
		if err := store.DeletePoint(m.cursor); err != nil {
			m.setError(err)
		} else {
			m.setMessage(fmt.Sprintf("deleted point #%d", m.cursor))
		}
		m.refresh()

	case "t", "T":
		// Re-derive the selected point as the current beacon type.
		if len(m.samples) == 0 {
			break
		}
		smp := m.samples[m.cursor]
		next, err := store.UpdatePointReading(m.cursor, smp.RSSI, store.BeaconType())
		switch {
		case err != nil:
			m.setError(err)
		case next == nil:
			m.setMessage(fmt.Sprintf("point #%d removed (zero radius as %s)", m.cursor, store.BeaconType()))
		default:
			m.setMessage(fmt.Sprintf("point #%d is now %s (%.2fm)", m.cursor, next.BeaconID, next.Radius))
		}
		m.refresh()

	case "c", "C":
		store.Clear()
		m.setMessage("cleared")
		m.refresh()

	case "b", "B":
		ids := m.shared.cfg.Catalog.IDs()
		next := ids[0]
		for i, id := range ids {
			if id == store.BeaconType() {
				next = ids[(i+1)%len(ids)]
				break
			}
		}
		if err := store.SetBeaconType(next); err != nil {
			m.setError(err)
		} else {
			m.setMessage("beacon type " + next)
		}

	case "+", "=":
		m.adjustLayerRadius(layerRadiusStep)

	case "-", "_":
		m.adjustLayerRadius(-layerRadiusStep)

	case "e", "E":
		if m.shared.layouts == nil {
			m.setError(fmt.Errorf("no layout database configured (use --db)"))
			break
		}
		return m, m.saveLayoutCmd(time.Now().Format("20060102-150405"))
	}

	return m, nil
}

func (m *AppModel) adjustLayerRadius(delta float64) {
	r := m.shared.store.LayerRadiusSetting() + delta
	if r < layerRadiusStep {
		r = layerRadiusStep
	}
	if err := m.shared.store.SetLayerRadius(r); err != nil {
		m.setError(err)
		return
	}
	m.setMessage(fmt.Sprintf("layer radius %.1fm", r))
}

func (m AppModel) saveLayoutCmd(name string) tea.Cmd {
	layouts := m.shared.layouts
	points := m.shared.store.ExportSamples()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := layouts.Save(ctx, name, points)
		return layoutSavedMsg{name: name, points: len(points), err: err}
	}
}

func (m AppModel) sourceLabel() string {
	if m.demoMode {
		return "demo"
	}
	return m.adapter
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing RSSI heatmap..."
	}

	menuH := 1
	statusH := 1
	bodyH := m.height - menuH - statusH
	if bodyH < 5 {
		bodyH = 5
	}

	mapW := m.width * 3 / 4
	if mapW < 30 {
		mapW = 30
	}
	listW := m.width - mapW
	if listW < 15 {
		listW = 15
		mapW = m.width - listW
	}

	store := m.shared.store
	menuBar := ui.RenderMenuBar(m.width, m.sourceLabel(), m.scanning)

	var mainPanel string
	if m.showDetail && m.cursor < len(m.samples) {
		mainPanel = ui.RenderDetailPanel(m.detail(), mapW, bodyH)
	} else {
		innerW := mapW - 4
		innerH := bodyH - 4
		if innerW < 5 {
			innerW = 5
		}
		if innerH < 3 {
			innerH = 3
		}
		vp := ui.Viewport{Center: m.shared.operator, SpanM: config.GridSpanM, Width: innerW, Height: innerH}
		grid := ui.RenderHeatGrid(vp, m.samples, store.LayerRadius(), m.cursor)
		mainPanel = ui.RenderMapPanel(mapW, bodyH, grid, ui.RenderHeatLegend(innerW, vp))
	}

	sampleList := ui.RenderSampleList(m.samples, listW, bodyH, m.cursor, store.BeaconType())

	renderable := 0
	for _, s := range m.samples {
		if s.Intensity > 0 {
			renderable++
		}
	}
	statusBar := ui.RenderStatusBar(m.width, ui.Status{
		Scanning:    m.scanning,
		Points:      len(m.samples),
		Renderable:  renderable,
		BeaconType:  store.BeaconType(),
		LayerRadius: store.LayerRadius(),
		LastRSSI:    m.lastRSSI,
		HasReading:  m.hasReading,
		Message:     m.message,
		IsError:     m.isError,
	})

	return ui.ComposeLayout(menuBar, mainPanel, sampleList, statusBar)
}

// detail assembles the detail panel data for the sample under the cursor.
func (m AppModel) detail() ui.Detail {
	s := m.shared
	smp := m.samples[m.cursor]
	d := ui.Detail{Index: m.cursor, Sample: smp}

	if p, err := s.store.Calculator().Catalog().Lookup(smp.BeaconID); err == nil {
		d.Profile = p
	}
	if res, err := s.store.Calculator().ComputeRadius(smp.RSSI, smp.BeaconID); err == nil {
		d.Debug = res.Debug
	}
	if h, ok := s.store.Handle(smp.ID); ok {
		if mk, ok := h.(marker); ok {
			d.Source = mk.source
			d.Seen = mk.seen
		}
	}
	if ring, ok := s.history[smp.BeaconID]; ok {
		d.History = ring.Values()
		d.Mean, d.StdDev = ring.MeanStdDev()
	}
	return d
}

// StartFeed creates and starts the reading source. Must be called before
// p.Run().
func (m *AppModel) StartFeed(p *tea.Program) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.shared.cancel = cancel

	var src feed.Source
	if m.demoMode {
		src = feed.NewDemoFeed(m.shared.operator, m.shared.cfg.Catalog.IDs(), time.Now().UnixNano())
	} else {
		src = feed.NewBLEScanner(m.shared.operator, m.shared.cfg.BeaconMACs)
	}
	m.shared.source = src

	return src.Start(ctx, func(r heatmap.Reading) {
		p.Send(ReadingMsg{Reading: r})
	})
}

// StopFeed stops the reading source.
func (m *AppModel) StopFeed() {
	if m.shared.source != nil {
		m.shared.source.Stop()
	}
	if m.shared.cancel != nil {
		m.shared.cancel()
	}
}

func evictCmd() tea.Cmd {
	return tea.Tick(config.EvictInterval, func(t time.Time) tea.Msg {
		return EvictMsg(t)
	})
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
