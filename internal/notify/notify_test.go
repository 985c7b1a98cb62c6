package notify

import (
	"strings"
	"testing"
)

type sent struct {
	title, message string
}

func newTestNotifier(enabled bool) (*Notifier, *[]sent) {
	var got []sent
	n := New(enabled)
	n.send = func(title, message, icon string) error {
		got = append(got, sent{title, message})
		return nil
	}
	return n, &got
}

func TestNotifierDisabled(t *testing.T) {
	n, got := newTestNotifier(false)
	n.Recording()
	n.Error("API Error", "boom")
	if len(*got) != 0 {
		t.Errorf("disabled notifier sent %v", *got)
	}

	n.SetEnabled(true)
	n.Recognized("London")
	if len(*got) != 1 || (*got)[0].title != "WeatherVoice: Recognized" || (*got)[0].message != "London" {
		t.Errorf("got %v", *got)
	}
}

func TestNotifierReport(t *testing.T) {
	n, got := newTestNotifier(true)
	n.Report("London, United Kingdom", 18.5, "Partly cloudy", "Mild Weather")

	want := sent{"WeatherVoice: London, United Kingdom", "18.5°C, Partly cloudy. Mild Weather"}
	if len(*got) != 1 || (*got)[0] != want {
		t.Errorf("got %v, want %v", *got, want)
	}
}

func TestNotifierTruncates(t *testing.T) {
	n, got := newTestNotifier(true)
	n.Error("Error", strings.Repeat("я", 150))

	msg := (*got)[0].message
	if !strings.HasSuffix(msg, "...") || len([]rune(msg)) != maxMessage+3 {
		t.Errorf("message not truncated on a rune boundary: %d runes", len([]rune(msg)))
	}
}
