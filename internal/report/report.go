// Package report provides the floating window with the weather report.
package report

import (
	"image/color"
	"sync"
	"time"

	"gioui.org/app"
	"gioui.org/io/key"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"weathervoice/internal/audio"
	"weathervoice/internal/workflow"
)

// historySize is the number of level bars shown while recording.
const historySize = 48

// Config holds window configuration.
type Config struct {
	Width         int           // Window width in pixels
	Height        int           // Window height in pixels
	RefreshRate   time.Duration // Redraw interval while recording
	BGColor       color.NRGBA   // Background color
	PanelColor    color.NRGBA   // Panel background
	TextColor     color.NRGBA   // Text color
	TextDimColor  color.NRGBA   // Dim text color
	ProgressColor color.NRGBA   // Status: work in progress
	SuccessColor  color.NRGBA   // Status: success
	ErrorColor    color.NRGBA   // Status: error
	LevelColor    color.NRGBA   // Recording level bars
	MaxTempColor  color.NRGBA   // Chart: daily maximum
	MinTempColor  color.NRGBA   // Chart: daily minimum
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Width:         460,
		Height:        620,
		RefreshRate:   33 * time.Millisecond, // ~30fps
		BGColor:       color.NRGBA{R: 30, G: 30, B: 34, A: 245},
		PanelColor:    color.NRGBA{R: 45, G: 45, B: 50, A: 255},
		TextColor:     color.NRGBA{R: 240, G: 240, B: 245, A: 255},
		TextDimColor:  color.NRGBA{R: 140, G: 140, B: 150, A: 255},
		ProgressColor: color.NRGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 255},
		SuccessColor:  color.NRGBA{R: 0x0b, G: 0x80, B: 0x43, A: 255},
		ErrorColor:    color.NRGBA{R: 0xd9, G: 0x30, B: 0x25, A: 255},
		LevelColor:    color.NRGBA{R: 80, G: 200, B: 120, A: 255},
		MaxTempColor:  color.NRGBA{R: 255, G: 110, B: 90, A: 255},
		MinTempColor:  color.NRGBA{R: 88, G: 166, B: 255, A: 255},
	}
}

// StatusColor maps a status severity to its color.
func (c Config) StatusColor(s workflow.Severity) color.NRGBA {
	switch s {
	case workflow.SeverityProgress:
		return c.ProgressColor
	case workflow.SeveritySuccess:
		return c.SuccessColor
	case workflow.SeverityError:
		return c.ErrorColor
	default:
		return c.TextDimColor
	}
}

// view is a snapshot of the window state taken once per frame.
type view struct {
	status    string
	severity  workflow.Severity
	recording bool
	level     audio.Level
	history   []float32
	result    *workflow.Result
}

// busy reports whether a service call is in progress.
func (v view) busy() bool {
	return v.severity == workflow.SeverityProgress && !v.recording
}

// animating reports whether the window needs periodic redraws.
func (v view) animating() bool {
	return v.recording || v.busy()
}

// Window manages the floating report window.
// All setters are safe to call from any goroutine.
type Window struct {
	mu     sync.Mutex
	config Config
	theme  *material.Theme

	status    string
	severity  workflow.Severity
	recording bool
	level     audio.Level
	history   []float32
	result    *workflow.Result

	closeBtn widget.Clickable
	onClose  func()

	window  *app.Window
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a report window.
func New(cfg Config) *Window {
	return &Window{
		config: cfg,
		status: "Ready",
	}
}

// Show displays the window (non-blocking).
func (w *Window) Show() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.invalidate()
		return
	}

	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.runEventLoop(w.stopCh, w.doneCh)
}

// Hide closes the window.
func (w *Window) Hide() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh := w.stopCh
	doneCh := w.doneCh
	w.stopCh = nil
	w.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}

	// Wait for window to close
	if doneCh != nil {
		select {
		case <-doneCh:
		case <-time.After(time.Second):
		}
	}
}

// OnClose sets the callback for when the user closes the window.
func (w *Window) OnClose(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClose = fn
}

// SetStatus updates the status line.
func (w *Window) SetStatus(msg string, severity workflow.Severity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = msg
	w.severity = severity
	w.invalidate()
}

// BeginRecording switches to the level meter and clears its history.
func (w *Window) BeginRecording() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recording = true
	w.level = audio.Level{}
	w.history = w.history[:0]
	w.invalidate()
}

// EndRecording hides the level meter.
func (w *Window) EndRecording() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recording = false
	w.invalidate()
}

// SetLevel records one recording progress update.
func (w *Window) SetLevel(l audio.Level) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.level = l
	w.history = pushLevel(w.history, l.RMS, historySize)
	w.invalidate()
}

// SetResult shows a new report. nil clears the previous one.
func (w *Window) SetResult(res *workflow.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.result = res
	w.recording = false
	w.invalidate()
}

// invalidate requests a redraw. Caller holds w.mu.
func (w *Window) invalidate() {
	if w.window != nil {
		w.window.Invalidate()
	}
}

func (w *Window) snapshot() view {
	w.mu.Lock()
	defer w.mu.Unlock()
	return view{
		status:    w.status,
		severity:  w.severity,
		recording: w.recording,
		level:     w.level,
		history:   append([]float32(nil), w.history...),
		result:    w.result,
	}
}

// pushLevel appends v, keeping at most n newest values.
func pushLevel(history []float32, v float32, n int) []float32 {
	history = append(history, v)
	if len(history) > n {
		history = append(history[:0], history[len(history)-n:]...)
	}
	return history
}

const windowTitle = "WeatherVoice"

func (w *Window) runEventLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	win := new(app.Window)
	win.Option(
		app.Title(windowTitle),
		app.Size(unit.Dp(w.config.Width), unit.Dp(w.config.Height)),
	)

	w.mu.Lock()
	w.window = win
	if w.theme == nil {
		w.theme = material.NewTheme()
	}
	th := w.theme
	w.mu.Unlock()

	// Position window after it appears
	go positionWindow(windowTitle, w.config.Width, w.config.Height)

	// Timer for periodic redraws (level meter and spinner)
	ticker := time.NewTicker(w.config.RefreshRate)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-stopCh:
				win.Perform(system.ActionClose)
				return
			case <-ticker.C:
				if w.snapshot().animating() {
					win.Invalidate()
				}
			}
		}
	}()

	var ops op.Ops
	for {
		switch e := win.Event().(type) {
		case app.DestroyEvent:
			w.mu.Lock()
			w.window = nil
			wasRunning := w.running
			w.running = false
			onClose := w.onClose
			w.mu.Unlock()
			// Closed by the user, not by Hide
			if wasRunning {
				close(stopCh)
				if onClose != nil {
					go onClose()
				}
			}
			return
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			w.draw(gtx, th, w.snapshot())
			e.Frame(gtx.Ops)
		}
	}
}

func (w *Window) draw(gtx layout.Context, th *material.Theme, v view) {
	// ESC closes the window
	for {
		event, ok := gtx.Event(key.Filter{Name: key.NameEscape})
		if !ok {
			break
		}
		if e, ok := event.(key.Event); ok && e.State == key.Press {
			go w.Hide()
		}
	}
	if w.closeBtn.Clicked(gtx) {
		go w.Hide()
	}

	drawWindow(gtx, th, w.config, v, &w.closeBtn)
}
