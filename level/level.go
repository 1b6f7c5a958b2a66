// Package level smooths per-bucket microphone levels for the overlay meter.
package level

import "math"

const (
	// Channels is the number of level buckets the backend reports.
	Channels = 16
	// DisplayBars is how many smoothed buckets the meter draws.
	DisplayBars = 9
	// Alpha is the share of the previous smoothed value kept on each update.
	Alpha = 0.7
)

type Vector [Channels]float64

type Display [DisplayBars]float64

// Smooth applies one exponential smoothing step. Buckets missing from raw
// count as 0 and buckets past Channels are ignored. Inputs are not
// validated: NaN and negative values propagate.
func Smooth(prev Vector, raw []float64) Vector {
	var out Vector
	for i, p := range prev {
		var target float64
		if i < len(raw) {
			target = raw[i]
		}
		out[i] = p*Alpha + target*(1-Alpha)
	}
	return out
}

// DisplayLevels returns the buckets the meter draws.
func DisplayLevels(v Vector) Display {
	var d Display
	copy(d[:], v[:DisplayBars])
	return d
}

const (
	minBarHeight = 4
	maxBarHeight = 20
	barRange     = 16
	minOpacity   = 0.2
	opacityGain  = 1.7
)

// BarHeight maps a smoothed level to a bar height in pixels, capped at 20.
func BarHeight(v float64) float64 {
	h := minBarHeight + math.Pow(v, 0.7)*barRange
	switch {
	case math.IsNaN(h):
		return minBarHeight
	case h > maxBarHeight:
		return maxBarHeight
	}
	return h
}

// BarOpacity maps a smoothed level to a bar opacity with a 0.2 floor.
// Values above 1 are returned as is; renderers clamp.
func BarOpacity(v float64) float64 {
	o := v * opacityGain
	if o < minOpacity || math.IsNaN(o) {
		return minOpacity
	}
	return o
}
