package hotkey

import "encoding/binary"

// evdev key codes, see linux/input-event-codes.h
const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
	keyLCtrl   = 29
	keyRCtrl   = 97
	keyLShift  = 42
	keyRShift  = 54
	keyX       = 45
)

// inputEventSize is sizeof(struct input_event) on 64-bit kernels.
const inputEventSize = 24

// chord tracks modifier state for one keyboard. Auto-repeat of X while it
// is held does not fire again.
type chord struct {
	ctrl, shift, x bool
}

// feed applies one key event and reports whether it completed the chord.
func (c *chord) feed(code uint16, value int32) bool {
	pressed := value == keyPress
	released := value == keyRelease
	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed || (!released && c.ctrl)
	case keyLShift, keyRShift:
		c.shift = pressed || (!released && c.shift)
	case keyX:
		if pressed && !c.x && c.ctrl && c.shift {
			c.x = true
			return true
		}
		if released {
			c.x = false
		}
	}
	return false
}

// scan feeds every EV_KEY record in buf and returns how many chord
// presses it saw.
func (c *chord) scan(buf []byte) int {
	hits := 0
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		typ := binary.LittleEndian.Uint16(buf[i+16:])
		if typ != evKey {
			continue
		}
		code := binary.LittleEndian.Uint16(buf[i+18:])
		value := int32(binary.LittleEndian.Uint32(buf[i+20:]))
		if c.feed(code, value) {
			hits++
		}
	}
	return hits
}
