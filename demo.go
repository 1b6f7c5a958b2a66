package main

import (
	"context"
	"math"
	"time"

	"handy/events"
	"handy/level"
)

const (
	demoFrame      = 50 * time.Millisecond
	demoRecording  = 4 * time.Second
	demoTranscribe = 1500 * time.Millisecond
	demoIdle       = 2 * time.Second
)

// runDemo plays a scripted session on src until ctx is done: record with
// synthetic levels, transcribe, hide, repeat.
func runDemo(ctx context.Context, src *events.Fake) error {
	for {
		src.Show("recording")
		frames := int(demoRecording / demoFrame)
		for i := range frames {
			src.Level(demoLevels(i)...)
			if !sleep(ctx, demoFrame) {
				return nil
			}
		}
		src.Show("transcribing")
		if !sleep(ctx, demoTranscribe) {
			return nil
		}
		src.Hide()
		if !sleep(ctx, demoIdle) {
			return nil
		}
	}
}

// demoLevels is a speech-like spectrum for frame i, strongest in the low
// buckets, every value in [0, 1].
func demoLevels(i int) []float64 {
	out := make([]float64, level.Channels)
	t := float64(i) * 0.35
	envelope := 0.5 + 0.5*math.Sin(t*0.7)
	for b := range out {
		falloff := 1 - float64(b)/level.Channels
		wobble := 0.5 + 0.5*math.Sin(t+float64(b)*0.9)
		out[b] = envelope * falloff * wobble
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
