package main

import (
	"handy/beep"
	"handy/overlay"
)

// Sink is a presentation surface fed with every coordinator snapshot.
// Update runs on the coordinator loop and must not block.
type Sink interface {
	Update(snap overlay.Snapshot)
}

type SinkFunc func(overlay.Snapshot)

func (f SinkFunc) Update(snap overlay.Snapshot) { f(snap) }

type sinks []Sink

func (s sinks) Update(snap overlay.Snapshot) {
	for _, sink := range s {
		sink.Update(snap)
	}
}

// mailbox hands the latest snapshot to a slower consumer. Older pending
// snapshots are dropped. It assumes a single producer.
type mailbox struct {
	ch chan overlay.Snapshot
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan overlay.Snapshot, 1)}
}

func (m *mailbox) Update(snap overlay.Snapshot) {
	select {
	case m.ch <- snap:
		return
	default:
	}
	select {
	case <-m.ch:
	default:
	}
	select {
	case m.ch <- snap:
	default:
	}
}

func (m *mailbox) C() <-chan overlay.Snapshot { return m.ch }

// cueFor picks the beep for the change from prev to next.
func cueFor(prev, next overlay.Snapshot) (beep.Cue, bool) {
	wasRec := prev.Visible && prev.Mode == overlay.Recording
	isRec := next.Visible && next.Mode == overlay.Recording
	switch {
	case isRec && !wasRec:
		return beep.CueStart, true
	case isRec && next.Elapsed == 0 && prev.Elapsed > 0:
		// recording restarted in place
		return beep.CueStart, true
	case wasRec && next.Visible && next.Mode == overlay.Transcribing:
		return beep.CueEnd, true
	}
	return 0, false
}

// cueSink plays a cue on recording transitions.
type cueSink struct {
	prev overlay.Snapshot
	play func(beep.Cue)
}

func (c *cueSink) Update(snap overlay.Snapshot) {
	if cue, ok := cueFor(c.prev, snap); ok {
		c.play(cue)
	}
	c.prev = snap
}

// showCounter counts how often the overlay became visible.
type showCounter struct {
	visible bool
	shows   int
}

func (s *showCounter) Update(snap overlay.Snapshot) {
	if snap.Visible && !s.visible {
		s.shows++
	}
	s.visible = snap.Visible
}
