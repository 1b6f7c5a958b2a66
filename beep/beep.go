// Package beep plays short audible cues when the overlay changes state.
package beep

import (
	"math"
	"sync/atomic"
)

type Cue int

const (
	// CueStart marks the start of a recording.
	CueStart Cue = iota
	// CueEnd marks the hand-off from recording to transcribing.
	CueEnd
	// CueCancel is a low double beep sent with a cancel request.
	CueCancel
)

func (c Cue) String() string {
	switch c {
	case CueStart:
		return "start"
	case CueEnd:
		return "end"
	case CueCancel:
		return "cancel"
	}
	return "unknown"
}

const sampleRate = 44100

type tone struct {
	freq   float64
	dur    float64
	volume float64
	decay  float64
	// repeat plays the tone twice with a gap of this many seconds.
	repeat float64
}

var tones = map[Cue]tone{
	CueStart:  {freq: 1200, dur: 0.03, volume: 0.5, decay: 60},
	CueEnd:    {freq: 900, dur: 0.05, volume: 0.5, decay: 40},
	CueCancel: {freq: 350, dur: 0.08, volume: 0.6, decay: 30, repeat: 0.05},
}

var disabled atomic.Bool

func Disable()       { disabled.Store(true) }
func Enabled() bool { return !disabled.Load() }

// Play sounds c without blocking the caller.
func Play(c Cue) {
	if disabled.Load() {
		return
	}
	if _, ok := tones[c]; !ok {
		return
	}
	play(c)
}

// synth renders t as mono samples in [-1, 1].
func synth(t tone) []float64 {
	n := int(float64(sampleRate) * t.dur)
	out := make([]float64, n)
	for i := range out {
		x := float64(i) / sampleRate
		out[i] = math.Sin(2*math.Pi*t.freq*x) * t.volume * math.Exp(-x*t.decay)
	}
	if t.repeat > 0 {
		gap := make([]float64, int(float64(sampleRate)*t.repeat))
		twice := make([]float64, 0, 2*n+len(gap))
		twice = append(twice, out...)
		twice = append(twice, gap...)
		out = append(twice, out...)
	}
	return out
}

func toInt16(s float64) int16 {
	return int16(math.Max(-1, math.Min(1, s)) * math.MaxInt16)
}
