// Package gui is the floating desktop overlay, a small frameless pill at the
// bottom of the primary monitor. The window itself needs the gui build tag.
package gui

import (
	"image/color"
	"math"

	"handy/level"
	"handy/overlay"
)

const (
	barWidth = 6
	barGap   = 3
	// maxBarHeight matches the cap in level.BarHeight.
	maxBarHeight = 20
)

var barColor = color.NRGBA{R: 255, G: 255, B: 255}

// bar is the geometry and fill for one meter column.
type bar struct {
	x, y, h float32
	fill    color.NRGBA
}

// layoutBars places the display levels bottom-aligned in a strip of height
// maxBarHeight. Nothing is drawn outside recording.
func layoutBars(snap overlay.Snapshot) []bar {
	if !snap.Visible || snap.Mode != overlay.Recording {
		return nil
	}
	out := make([]bar, len(snap.Levels))
	for i, v := range snap.Levels {
		h := float32(level.BarHeight(v))
		c := barColor
		c.A = alpha(level.BarOpacity(v))
		out[i] = bar{
			x:    float32(i * (barWidth + barGap)),
			y:    maxBarHeight - h,
			h:    h,
			fill: c,
		}
	}
	return out
}

func alpha(opacity float64) uint8 {
	if math.IsNaN(opacity) {
		return 0
	}
	return uint8(min(1, max(0, opacity)) * 255)
}

func meterWidth() float32 {
	return float32(level.DisplayBars*barWidth + (level.DisplayBars-1)*barGap)
}

// caption is the text beside the meter.
func caption(snap overlay.Snapshot) string {
	switch {
	case !snap.Visible:
		return ""
	case snap.Mode == overlay.Recording:
		return snap.ElapsedText
	default:
		return "Transcribing..."
	}
}

// showCancel reports whether the cancel button is offered.
func showCancel(snap overlay.Snapshot) bool {
	return snap.Visible && snap.Mode == overlay.Recording
}
