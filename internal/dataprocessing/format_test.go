package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalfEven(t *testing.T) {
	tests := []struct {
		in     float64
		places int
		want   float64
	}{
		{12.5, 0, 12},
		{13.5, 0, 14},
		{-0.4, 0, 0},
		{2.675, 2, 2.67},
		{1.005, 2, 1},
		{33.333333, 2, 33.33},
		{100, 2, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundHalfEven(tt.in, tt.places), "RoundHalfEven(%v, %d)", tt.in, tt.places)
	}
	assert.False(t, math.Signbit(RoundHalfEven(-0.4, 0)), "negative zero should be dropped")
	assert.True(t, math.IsNaN(RoundHalfEven(math.NaN(), 2)))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "12%", FormatPercent(12.5, 0))
	assert.Equal(t, "-3%", FormatPercent(-3.2, 0))
	assert.Equal(t, "12.35%", FormatPercent(12.345678, 2))
	assert.Equal(t, "40%", FormatPercent(40, 2))
	assert.Equal(t, "3.45", FormatNumber(3.449999, 2))
}

func TestSignPrefix(t *testing.T) {
	assert.Equal(t, "+", SignPrefix(3))
	assert.Equal(t, "", SignPrefix(0))
	assert.Equal(t, "", SignPrefix(-2))
}
