//go:build gui

package gui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/go-gl/glfw/v3.3/glfw"

	"handy/overlay"
)

const bottomMargin = 40

type App struct {
	fyneApp  fyne.App
	window   fyne.Window
	meter    *MeterWidget
	icon     *widget.Icon
	caption  *canvas.Text
	cancel   *widget.Button
	onReady  func()
	onCancel func()

	mu    sync.Mutex
	shown bool
	posX  int
	posY  int
}

// NewApp builds the overlay. onReady runs on its own goroutine once the
// event loop is about to start; onCancel runs when the cancel button is
// pressed.
func NewApp(onReady, onCancel func()) *App {
	return &App{onReady: onReady, onCancel: onCancel}
}

func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.handy.overlay")
	a.fyneApp.Settings().SetTheme(pillTheme{})

	if desk, ok := a.fyneApp.(desktop.App); ok {
		desk.SetSystemTrayMenu(fyne.NewMenu("handy",
			fyne.NewMenuItem("Quit", func() { a.fyneApp.Quit() }),
		))
		desk.SetSystemTrayIcon(theme.MediaRecordIcon())
	}

	screenW, screenH := 1920, 1080
	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		_, _, screenW, screenH = monitor.GetWorkarea()
	}

	if drv, ok := a.fyneApp.Driver().(desktop.Driver); ok {
		a.window = drv.CreateSplashWindow()
	} else {
		a.window = a.fyneApp.NewWindow("handy")
	}

	a.meter = NewMeterWidget()
	a.icon = widget.NewIcon(theme.MediaRecordIcon())
	a.caption = canvas.NewText("", theme.Color(theme.ColorNameForeground))
	a.caption.TextSize = 12
	a.cancel = widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		if a.onCancel != nil {
			a.onCancel()
		}
	})
	a.cancel.Importance = widget.LowImportance
	a.cancel.Hide()

	a.window.SetContent(container.NewPadded(container.NewHBox(
		a.icon,
		container.NewCenter(a.meter),
		container.NewCenter(a.caption),
		a.cancel,
	)))
	a.window.SetFixedSize(true)
	a.window.SetPadded(false)

	size := a.window.Content().MinSize()
	a.window.Resize(size)
	a.posX = (screenW - int(size.Width)) / 2
	a.posY = screenH - int(size.Height) - bottomMargin

	go a.onReady()

	// the window stays hidden until the first visible snapshot
	a.fyneApp.Run()
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		a.fyneApp.Quit()
	}
}

// Update renders snap. Safe to call from any goroutine.
func (a *App) Update(snap overlay.Snapshot) {
	if a.meter == nil {
		return
	}
	a.meter.SetSnapshot(snap)
	fyne.Do(func() {
		if snap.Mode == overlay.Recording {
			a.icon.SetResource(theme.MediaRecordIcon())
		} else {
			a.icon.SetResource(theme.MediaReplayIcon())
		}
		a.caption.Text = caption(snap)
		a.caption.Refresh()
		if showCancel(snap) {
			a.cancel.Show()
		} else {
			a.cancel.Hide()
		}
		a.meter.Refresh()
		a.setShown(snap.Visible)
	})
}

// setShown must run on the fyne thread.
func (a *App) setShown(visible bool) {
	a.mu.Lock()
	changed := a.shown != visible
	a.shown = visible
	a.mu.Unlock()
	if !changed || a.window == nil {
		return
	}

	if !visible {
		a.window.Hide()
		return
	}
	if glfwWin := glfw.GetCurrentContext(); glfwWin != nil {
		glfwWin.SetPos(a.posX, a.posY)
		glfwWin.SetAttrib(glfw.FocusOnShow, glfw.False)
		glfwWin.SetAttrib(glfw.Floating, glfw.True)
		glfwWin.Show()
		return
	}
	a.window.Show()
}
