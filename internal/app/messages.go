package app

import (
	"time"

	"rssi-heatmap.klederson.com/internal/heatmap"
)

// TickMsg triggers a frame update.
type TickMsg time.Time

// EvictMsg triggers eviction of stale feed samples.
type EvictMsg time.Time

// ReadingMsg carries a reading from the feed into the model.
type ReadingMsg struct {
	Reading heatmap.Reading
}

// FeedErrorMsg reports feed errors.
type FeedErrorMsg struct {
	Err error
}

// layoutSavedMsg reports the result of an export to the layout database.
type layoutSavedMsg struct {
	name   string
	points int
	err    error
}
