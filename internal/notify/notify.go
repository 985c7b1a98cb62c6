// Package notify предоставляет системные уведомления.
package notify

import (
	"fmt"
	"sync/atomic"

	"github.com/gen2brain/beeep"
)

const appName = "WeatherVoice"

// maxMessage - предел длины текста уведомления.
const maxMessage = 100

// Notifier отправляет системные уведомления.
type Notifier struct {
	enabled atomic.Bool
	send    func(title, message, icon string) error
}

// New создаёт новый Notifier.
func New(enabled bool) *Notifier {
	n := &Notifier{send: beeep.Notify}
	n.enabled.Store(enabled)
	return n
}

// SetEnabled включает/выключает уведомления.
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// Recording показывает уведомление о начале записи.
func (n *Notifier) Recording() {
	n.notify("Listening", "Say a city name")
}

// Recognized показывает распознанное место.
func (n *Notifier) Recognized(query string) {
	n.notify("Recognized", query)
}

// Report показывает краткую сводку погоды.
func (n *Notifier) Report(location string, tempC float64, condition, outfit string) {
	n.notify(location, fmt.Sprintf("%.1f°C, %s. %s", tempC, condition, outfit))
}

// Error показывает уведомление об ошибке.
func (n *Notifier) Error(title, msg string) {
	n.notify(title, msg)
}

func (n *Notifier) notify(title, message string) {
	if !n.enabled.Load() {
		return
	}
	if r := []rune(message); len(r) > maxMessage {
		message = string(r[:maxMessage]) + "..."
	}
	// Игнорируем ошибки уведомлений - они не критичны
	if title != "" {
		_ = n.send(appName+": "+title, message, "")
	} else {
		_ = n.send(appName, message, "")
	}
}
