package hotkey

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"
)

func keyEvent(code uint16, value int32) []byte {
	buf := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(buf[16:], evKey)
	binary.LittleEndian.PutUint16(buf[18:], code)
	binary.LittleEndian.PutUint32(buf[20:], uint32(value))
	return buf
}

func events(evs ...[]byte) []byte {
	var out []byte
	for _, e := range evs {
		out = append(out, e...)
	}
	return out
}

func TestChordFires(t *testing.T) {
	var c chord
	buf := events(
		keyEvent(keyLCtrl, keyPress),
		keyEvent(keyLShift, keyPress),
		keyEvent(keyX, keyPress),
	)
	if got := c.scan(buf); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestChordIgnoresAutoRepeat(t *testing.T) {
	var c chord
	buf := events(
		keyEvent(keyRCtrl, keyPress),
		keyEvent(keyRShift, keyPress),
		keyEvent(keyX, keyPress),
		keyEvent(keyX, 2),
		keyEvent(keyX, 2),
	)
	if got := c.scan(buf); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
	if got := c.scan(events(keyEvent(keyX, keyRelease), keyEvent(keyX, keyPress))); got != 1 {
		t.Errorf("hits after release = %d, want 1", got)
	}
}

func TestChordNeedsBothModifiers(t *testing.T) {
	var c chord
	buf := events(
		keyEvent(keyLCtrl, keyPress),
		keyEvent(keyX, keyPress),
		keyEvent(keyX, keyRelease),
		keyEvent(keyLCtrl, keyRelease),
		keyEvent(keyLShift, keyPress),
		keyEvent(keyX, keyPress),
	)
	if got := c.scan(buf); got != 0 {
		t.Errorf("hits = %d, want 0", got)
	}
}

func TestChordSkipsNonKeyEvents(t *testing.T) {
	var c chord
	syn := make([]byte, inputEventSize)
	buf := events(keyEvent(keyLCtrl, keyPress), syn, keyEvent(keyLShift, keyPress), syn, keyEvent(keyX, keyPress))
	if got := c.scan(buf); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestChordPartialRecord(t *testing.T) {
	var c chord
	c.ctrl, c.shift = true, true
	if got := c.scan(keyEvent(keyX, keyPress)[:inputEventSize-1]); got != 0 {
		t.Errorf("hits = %d, want 0 for truncated record", got)
	}
}

func TestWatchGatesPresses(t *testing.T) {
	fk := NewFake()
	var enabled atomic.Bool
	fired := make(chan struct{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Watch(ctx, fk, enabled.Load, func() { fired <- struct{}{} })
		close(done)
	}()

	fk.SimKeydown()
	fk.SimKeydown() // blocks until the first press is consumed
	select {
	case <-fired:
		t.Fatal("fired while disabled")
	case <-time.After(20 * time.Millisecond):
	}

	enabled.Store(true)
	fk.SimKeydown()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fire")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestFakeRegister(t *testing.T) {
	fk := NewFake()
	if err := fk.Register(); err != nil || !fk.Registered() {
		t.Fatalf("Register: %v registered=%v", err, fk.Registered())
	}
	fk.Unregister()
	if fk.Registered() {
		t.Error("still registered after Unregister")
	}
}
