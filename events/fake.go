package events

import "sync"

// Fake is an in-memory Source. Emit delivers synchronously on the caller's
// goroutine, so emits from a single goroutine keep their order.
type Fake struct {
	mu       sync.Mutex
	next     int
	handlers map[Name]map[int]Handler
	fail     map[Name]error
	closed   bool
}

func NewFake() *Fake {
	return &Fake{
		handlers: make(map[Name]map[int]Handler),
		fail:     make(map[Name]error),
	}
}

// FailOn makes the next Listen for name return err.
func (f *Fake) FailOn(name Name, err error) {
	f.mu.Lock()
	f.fail[name] = err
	f.mu.Unlock()
}

func (f *Fake) Listen(name Name, h Handler) (Unlisten, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	if err := f.fail[name]; err != nil {
		delete(f.fail, name)
		return nil, err
	}
	if f.handlers[name] == nil {
		f.handlers[name] = make(map[int]Handler)
	}
	id := f.next
	f.next++
	f.handlers[name][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.handlers[name], id)
			f.mu.Unlock()
		})
	}, nil
}

// Listeners reports how many live subscriptions name has.
func (f *Fake) Listeners(name Name) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[name])
}

// Close rejects further Listen calls.
func (f *Fake) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *Fake) Emit(ev Event) {
	f.mu.Lock()
	hs := make([]Handler, 0, len(f.handlers[ev.Name]))
	for _, h := range f.handlers[ev.Name] {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *Fake) Show(mode string)        { f.Emit(Event{Name: ShowOverlay, Mode: mode}) }
func (f *Fake) Hide()                   { f.Emit(Event{Name: HideOverlay}) }
func (f *Fake) Level(levels ...float64) { f.Emit(Event{Name: MicLevel, Levels: levels}) }
