//go:build gui

package gui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"handy/level"
	"handy/overlay"
)

// MeterWidget draws the nine level bars of the current snapshot.
type MeterWidget struct {
	widget.BaseWidget
	mu   sync.Mutex
	snap overlay.Snapshot
}

func NewMeterWidget() *MeterWidget {
	m := &MeterWidget{}
	m.ExtendBaseWidget(m)
	return m
}

// SetSnapshot stores snap; the caller refreshes on the fyne thread.
func (m *MeterWidget) SetSnapshot(snap overlay.Snapshot) {
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
}

func (m *MeterWidget) MinSize() fyne.Size {
	return fyne.NewSize(meterWidth(), maxBarHeight)
}

func (m *MeterWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &meterRenderer{meter: m}
	for i := range r.rects {
		r.rects[i] = canvas.NewRectangle(color.Transparent)
		r.rects[i].CornerRadius = 2
	}
	return r
}

type meterRenderer struct {
	meter *MeterWidget
	rects [level.DisplayBars]*canvas.Rectangle
}

func (r *meterRenderer) Layout(fyne.Size) {
	r.Refresh()
}

func (r *meterRenderer) MinSize() fyne.Size {
	return r.meter.MinSize()
}

func (r *meterRenderer) Refresh() {
	r.meter.mu.Lock()
	snap := r.meter.snap
	r.meter.mu.Unlock()

	bars := layoutBars(snap)
	for i, rect := range r.rects {
		if i >= len(bars) {
			rect.Hide()
			continue
		}
		b := bars[i]
		rect.FillColor = b.fill
		rect.Move(fyne.NewPos(b.x, b.y))
		rect.Resize(fyne.NewSize(barWidth, b.h))
		rect.Show()
		rect.Refresh()
	}
}

func (r *meterRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, len(r.rects))
	for i, rect := range r.rects {
		objs[i] = rect
	}
	return objs
}

func (r *meterRenderer) Destroy() {}
