package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRSSIRing(t *testing.T) {
	r := NewRSSIRing(3)
	assert.Nil(t, r.Values())
	assert.Equal(t, 0.0, r.Last())

	r.Push(-60)
	r.Push(-62)
	assert.Equal(t, []float64{-60, -62}, r.Values())
	assert.Equal(t, -62.0, r.Last())

	r.Push(-64)
	r.Push(-66) // overwrites -60
	assert.Equal(t, []float64{-62, -64, -66}, r.Values())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, -66.0, r.Last())
}

func TestRSSIRing_MeanStdDev(t *testing.T) {
	r := NewRSSIRing(10)
	mean, std := r.MeanStdDev()
	assert.Zero(t, mean)
	assert.Zero(t, std)

	r.Push(-60)
	mean, std = r.MeanStdDev()
	assert.Equal(t, -60.0, mean)
	assert.Zero(t, std)

	r.Push(-62)
	r.Push(-64)
	mean, std = r.MeanStdDev()
	assert.InDelta(t, -62.0, mean, 1e-9)
	assert.InDelta(t, 2.0, std, 1e-9)
}
