package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"weathervoice/internal/audio"
	"weathervoice/internal/config"
	"weathervoice/internal/icons"
	"weathervoice/internal/speech"
	"weathervoice/internal/weather"
	"weathervoice/internal/workflow"
)

// recorder of UI calls shared by the fakes.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, fmt.Sprintf(format, args...))
}

func (c *calls) count(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.log {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func (c *calls) last(prefix string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.log) - 1; i >= 0; i-- {
		if strings.HasPrefix(c.log[i], prefix) {
			return c.log[i]
		}
	}
	return ""
}

type fakeTray struct{ *calls }

func (f fakeTray) SetStatus(message string, icon icons.Kind) { f.add("tray.status %s|%d", message, icon) }
func (f fakeTray) SetTriggerEnabled(enabled bool)            { f.add("tray.trigger %v", enabled) }
func (f fakeTray) EnableReport()                             { f.add("tray.report") }
func (f fakeTray) SetHotkeyLabel(label string)               { f.add("tray.hotkey %s", label) }
func (f fakeTray) SetNotifications(enabled bool)             { f.add("tray.notifications %v", enabled) }

type fakeReport struct{ *calls }

func (f fakeReport) Show()                  { f.add("report.show") }
func (f fakeReport) Hide()                  { f.add("report.hide") }
func (f fakeReport) BeginRecording()        { f.add("report.begin") }
func (f fakeReport) EndRecording()          { f.add("report.end") }
func (f fakeReport) SetLevel(l audio.Level) { f.add("report.level %s", l.Elapsed) }
func (f fakeReport) SetResult(res *workflow.Result) {
	if res == nil {
		f.add("report.result <nil>")
		return
	}
	f.add("report.result %s %s", res.Report.Location, res.Outfit.Category)
}
func (f fakeReport) SetStatus(msg string, severity workflow.Severity) {
	f.add("report.status %s|%d", msg, severity)
}

type fakeNotifier struct{ *calls }

func (f fakeNotifier) SetEnabled(enabled bool)  { f.add("notify.enabled %v", enabled) }
func (f fakeNotifier) Recording()               { f.add("notify.recording") }
func (f fakeNotifier) Recognized(query string)  { f.add("notify.recognized %s", query) }
func (f fakeNotifier) Error(title, msg string)  { f.add("notify.error %s", title) }
func (f fakeNotifier) Report(location string, tempC float64, condition, outfit string) {
	f.add("notify.report %s %.1f %s", location, tempC, outfit)
}

type levelsCapturer struct{ n int }

func (c levelsCapturer) Record(ctx context.Context, onLevel func(audio.Level)) (*audio.Clip, error) {
	for i := 1; i <= c.n; i++ {
		onLevel(audio.Level{Elapsed: time.Duration(i) * 100 * time.Millisecond, Total: time.Second})
	}
	return &audio.Clip{Samples: make([]int16, 100), SampleRate: audio.SampleRate, Channels: 1}, nil
}

type queryTranscriber struct {
	query string
	err   error
}

func (t queryTranscriber) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	return t.query, t.err
}

// scriptedTranscriber answers each run with the next entry.
type scriptedTranscriber struct {
	mu    sync.Mutex
	steps []queryTranscriber
}

func (t *scriptedTranscriber) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	step := t.steps[0]
	t.steps = t.steps[1:]
	return step.query, step.err
}

type fixedWeather struct{}

func (fixedWeather) Lookup(ctx context.Context, query string) (*weather.Report, error) {
	return &weather.Report{City: query, Location: query + ", United Kingdom", TempC: 18.5, Condition: "Partly cloudy"}, nil
}

func newTestApp(t *testing.T, runner *workflow.Runner) (*App, *calls, chan [2]string) {
	t.Helper()
	c := &calls{}
	dialogs := make(chan [2]string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &App{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		runner:    runner,
		tray:      fakeTray{c},
		reportWin: fakeReport{c},
		notifier:  fakeNotifier{c},
		showError: func(title, message string) { dialogs <- [2]string{title, message} },
		ui:        make(chan func(), 16),
		ctx:       ctx,
		cancel:    cancel,
	}, c, dialogs
}

func TestDispatchSuccessfulRun(t *testing.T) {
	runner := workflow.New(levelsCapturer{n: 10}, queryTranscriber{query: "London"}, fixedWeather{}, nil)
	a, c, dialogs := newTestApp(t, runner)

	a.Trigger()
	runner.Wait()
	a.drain()

	// Ten contiguous level updates collapse into the last one
	if n := c.count("report.level"); n != 1 {
		t.Errorf("SetLevel called %d times, want 1", n)
	}
	if got := c.last("report.level"); got != "report.level 1s" {
		t.Errorf("last level = %q", got)
	}

	if c.count("report.begin") != 1 || c.count("report.show") != 1 {
		t.Error("recording did not open the window")
	}
	if got := c.last("report.result"); got != "report.result London, United Kingdom Mild Weather" {
		t.Errorf("result = %q", got)
	}
	if c.count("tray.report") != 1 {
		t.Error("Show report not enabled")
	}
	if got := c.last("notify.recognized"); got != "notify.recognized London" {
		t.Errorf("recognized = %q", got)
	}
	if got := c.last("notify.report"); got != "notify.report London, United Kingdom 18.5 Mild Weather" {
		t.Errorf("report notification = %q", got)
	}
	if got := c.last("tray.trigger"); got != "tray.trigger true" {
		t.Errorf("trigger not re-enabled, last = %q", got)
	}
	if got := c.last("tray.status"); got != fmt.Sprintf("tray.status Weather updated for London, United Kingdom|%d", icons.Idle) {
		t.Errorf("tray status = %q", got)
	}

	select {
	case d := <-dialogs:
		t.Errorf("unexpected dialog %v", d)
	default:
	}
}

func TestDispatchErrorShowsDialog(t *testing.T) {
	runner := workflow.New(levelsCapturer{n: 1}, queryTranscriber{err: speech.ErrUnintelligible}, fixedWeather{}, nil)
	a, c, dialogs := newTestApp(t, runner)

	a.Trigger()
	runner.Wait()
	a.drain()

	select {
	case d := <-dialogs:
		if d[0] != "Recognition Error" || d[1] != "Could not understand your speech. Please try again." {
			t.Errorf("dialog = %v", d)
		}
	case <-time.After(time.Second):
		t.Fatal("no error dialog")
	}

	want := fmt.Sprintf("tray.status Could not understand audio|%d", icons.Failed)
	if got := c.last("tray.status"); got != want {
		t.Errorf("tray status = %q, want %q", got, want)
	}
	if got := c.last("report.status"); got != fmt.Sprintf("report.status Could not understand audio|%d", workflow.SeverityError) {
		t.Errorf("report status = %q", got)
	}
	if got := c.last("report.result"); got != "report.result <nil>" {
		t.Errorf("error run left a report on screen: %q", got)
	}
	if got := c.last("tray.trigger"); got != "tray.trigger true" {
		t.Errorf("trigger not re-enabled, last = %q", got)
	}
}

func TestDispatchClearsPreviousReport(t *testing.T) {
	stt := &scriptedTranscriber{steps: []queryTranscriber{
		{query: "London"},
		{err: speech.ErrUnintelligible},
	}}
	runner := workflow.New(levelsCapturer{n: 1}, stt, fixedWeather{}, nil)
	a, c, dialogs := newTestApp(t, runner)

	a.Trigger()
	runner.Wait()
	a.drain()
	if got := c.last("report.result"); got != "report.result London, United Kingdom Mild Weather" {
		t.Fatalf("first run result = %q", got)
	}

	if !runner.Start(a.ctx) {
		t.Fatal("second run did not start")
	}
	runner.Wait()
	a.drain()
	<-dialogs

	if got := c.last("report.result"); got != "report.result <nil>" {
		t.Errorf("report after failed run = %q, want cleared", got)
	}
	if n := c.count("report.result <nil>"); n != 2 {
		t.Errorf("report cleared %d times, want once per run", n)
	}
	if got := c.last("report.status"); got != fmt.Sprintf("report.status Could not understand audio|%d", workflow.SeverityError) {
		t.Errorf("report status = %q", got)
	}
}

func TestDispatchIgnoresIdleOfPreviousRun(t *testing.T) {
	runner := workflow.New(levelsCapturer{}, queryTranscriber{}, fixedWeather{}, nil)
	a, c, _ := newTestApp(t, runner)

	a.apply(workflow.Event{RunID: "run-1", Kind: workflow.EventStatus, State: workflow.StateFetchingWeather, Message: "Connecting to weather service..."})
	// run-2 started before run-1's Idle was delivered
	a.apply(workflow.Event{RunID: "run-2", Kind: workflow.EventStatus, State: workflow.StateRecording, Message: "Recording... Speak now"})
	a.apply(workflow.Event{RunID: "run-1", Kind: workflow.EventIdle, State: workflow.StateIdle})

	if got := c.last("tray.trigger"); got != "tray.trigger false" {
		t.Fatalf("trigger re-enabled by stale Idle, last = %q", got)
	}

	a.apply(workflow.Event{RunID: "run-2", Kind: workflow.EventIdle, State: workflow.StateIdle})
	if got := c.last("tray.trigger"); got != "tray.trigger true" {
		t.Errorf("trigger not re-enabled after current run, last = %q", got)
	}
}

func TestDispatchRunsPostedUIChanges(t *testing.T) {
	runner := workflow.New(levelsCapturer{}, queryTranscriber{}, fixedWeather{}, nil)
	a, c, _ := newTestApp(t, runner)

	a.post(func() { a.tray.SetHotkeyLabel("alt+f5") })
	a.post(func() { a.tray.SetNotifications(false) })
	a.drain()

	if c.count("tray.hotkey alt+f5") != 1 || c.count("tray.notifications false") != 1 {
		t.Errorf("posted changes not applied: %v", c.log)
	}
}

func TestDispatchStopsWithContext(t *testing.T) {
	runner := workflow.New(levelsCapturer{}, queryTranscriber{}, fixedWeather{}, nil)
	a, _, _ := newTestApp(t, runner)

	done := make(chan struct{})
	go func() {
		a.dispatch(a.ctx)
		close(done)
	}()
	a.cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestOnConfigChange(t *testing.T) {
	runner := workflow.New(levelsCapturer{}, queryTranscriber{}, fixedWeather{}, nil)
	a, c, _ := newTestApp(t, runner)
	a.speechFactory = speech.NewFactory()
	a.weather = newWeatherSource(weather.NewClient(weather.Config{}, nil))

	hk := config.HotkeyConfig{Modifiers: []config.Modifier{config.ModCtrl, config.ModShift}, Key: config.KeyW}
	prev := config.Settings{
		Speech:        config.SpeechSettings{Engine: "google"},
		Hotkey:        hk,
		Notifications: true,
	}
	next := prev
	next.Speech.Engine = "openai"
	next.Notifications = false

	a.onConfigChange(prev, next)
	a.drain()

	if a.speechFactory.CurrentEngine() != speech.EngineOpenAI {
		t.Errorf("engine = %q, want openai", a.speechFactory.CurrentEngine())
	}
	if c.count("notify.enabled false") != 1 || c.count("tray.notifications false") != 1 {
		t.Errorf("notifications toggle not applied: %v", c.log)
	}

	// Unknown engine keeps the previous recognizer and reports the problem
	bad := next
	bad.Speech.Engine = "vosk"
	a.onConfigChange(next, bad)
	a.drain()
	if a.speechFactory.CurrentEngine() != speech.EngineOpenAI {
		t.Error("failed swap replaced the recognizer")
	}
	if c.count("notify.error Speech") != 1 {
		t.Error("failed swap not reported")
	}
}

func TestWeatherSourceSwap(t *testing.T) {
	server := func(name string) *weather.Client {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/current.json" {
				fmt.Fprintf(w, `{"location": {"name": %q, "country": "X"}, "current": {"temp_c": 1}}`, name)
				return
			}
			fmt.Fprint(w, `{"forecast": {"forecastday": [{"date": "2026-10-18", "day": {"maxtemp_c": 2, "mintemp_c": 0}}]}}`)
		}))
		t.Cleanup(srv.Close)
		return weather.NewClient(weather.Config{BaseURL: srv.URL, APIKey: "k"}, nil)
	}

	src := newWeatherSource(server("first"))
	rep, err := src.Lookup(context.Background(), "q")
	if err != nil || rep.City != "first" {
		t.Fatalf("Lookup() = %+v, %v", rep, err)
	}

	src.Swap(server("second"))
	rep, err = src.Lookup(context.Background(), "q")
	if err != nil || rep.City != "second" {
		t.Fatalf("after Swap Lookup() = %+v, %v", rep, err)
	}
}

func TestHotkeyLabel(t *testing.T) {
	tests := []struct {
		name string
		hk   config.HotkeyConfig
		want string
	}{
		{"registered", config.HotkeyConfig{Modifiers: []config.Modifier{config.ModCtrl, config.ModShift}, Key: config.KeyW}, "ctrl+shift+w"},
		{"none active", config.HotkeyConfig{}, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hotkeyLabel(tt.hk); got != tt.want {
				t.Errorf("hotkeyLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}
