// Package tray предоставляет системный трей с меню.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"weathervoice/internal/icons"
)

const appTitle = "WeatherVoice"

// Callbacks содержит обработчики событий меню.
type Callbacks struct {
	OnGetWeather          func()
	OnShowReport          func()
	OnHotkeyClick         func()
	OnNotificationsToggle func() bool
	// OnExit вызывается после остановки цикла трея (пункт Quit или Tray.Quit).
	OnExit func()
}

// Tray управляет иконкой в системном трее.
type Tray struct {
	callbacks Callbacks

	mu            sync.Mutex
	getWeather    *systray.MenuItem
	status        *systray.MenuItem
	showReport    *systray.MenuItem
	hotkeyBtn     *systray.MenuItem
	notifyOn      *systray.MenuItem
	quitBtn       *systray.MenuItem
	notifications bool
	hotkeyLabel   string
}

// New создаёт новый Tray.
func New(callbacks Callbacks, notifications bool, hotkeyLabel string) *Tray {
	return &Tray{
		callbacks:     callbacks,
		notifications: notifications,
		hotkeyLabel:   hotkeyLabel,
	}
}

// Run запускает системный трей. Блокирующая функция.
func (t *Tray) Run(onReady func()) {
	systray.Run(func() {
		t.onReady()
		if onReady != nil {
			onReady()
		}
	}, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(icons.PNG(icons.Idle))
	systray.SetTitle(appTitle)
	systray.SetTooltip(appTitle + " - Ready")

	t.mu.Lock()
	// Триггер
	t.getWeather = systray.AddMenuItem("Get Weather", triggerHint(t.hotkeyLabel))

	// Статус
	t.status = systray.AddMenuItem("Ready", "")
	t.status.Disable()

	// Отчёт доступен после первого прогона
	t.showReport = systray.AddMenuItem("Show report", "Open the last weather report")
	t.showReport.Disable()

	systray.AddSeparator()

	t.hotkeyBtn = systray.AddMenuItem("Change hotkey...", "Current: "+t.hotkeyLabel)
	t.notifyOn = systray.AddMenuItemCheckbox("Notifications", "Desktop notifications", t.notifications)

	systray.AddSeparator()

	// Выход
	t.quitBtn = systray.AddMenuItem("Quit", "Quit "+appTitle)
	t.mu.Unlock()

	// Обработка событий меню
	go t.handleMenuEvents()
}

func (t *Tray) handleMenuEvents() {
	for {
		select {
		case <-t.getWeather.ClickedCh:
			if t.callbacks.OnGetWeather != nil {
				t.callbacks.OnGetWeather()
			}

		case <-t.showReport.ClickedCh:
			if t.callbacks.OnShowReport != nil {
				t.callbacks.OnShowReport()
			}

		case <-t.hotkeyBtn.ClickedCh:
			if t.callbacks.OnHotkeyClick != nil {
				t.callbacks.OnHotkeyClick()
			}

		case <-t.notifyOn.ClickedCh:
			if t.callbacks.OnNotificationsToggle != nil {
				t.SetNotifications(t.callbacks.OnNotificationsToggle())
			}

		case <-t.quitBtn.ClickedCh:
			t.Quit()
			return
		}
	}
}

// SetStatus обновляет строку статуса и иконку.
func (t *Tray) SetStatus(message string, icon icons.Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == nil {
		return
	}
	systray.SetIcon(icons.PNG(icon))
	systray.SetTooltip(appTitle + " - " + message)
	t.status.SetTitle(message)
}

// SetTriggerEnabled включает/выключает пункт "Get Weather".
func (t *Tray) SetTriggerEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.getWeather == nil {
		return
	}
	if enabled {
		t.getWeather.Enable()
	} else {
		t.getWeather.Disable()
	}
}

// EnableReport делает доступным пункт "Show report".
func (t *Tray) EnableReport() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.showReport != nil {
		t.showReport.Enable()
	}
}

// SetHotkeyLabel обновляет подсказки с текущей горячей клавишей.
func (t *Tray) SetHotkeyLabel(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hotkeyLabel = label
	if t.getWeather != nil {
		t.getWeather.SetTooltip(triggerHint(label))
		t.hotkeyBtn.SetTooltip("Current: " + label)
	}
}

// SetNotifications обновляет флажок уведомлений.
func (t *Tray) SetNotifications(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notifications = enabled
	if t.notifyOn == nil {
		return
	}
	if enabled {
		t.notifyOn.Check()
	} else {
		t.notifyOn.Uncheck()
	}
}

func triggerHint(hotkeyLabel string) string {
	if hotkeyLabel == "" {
		return "Record a city name and fetch its weather"
	}
	return "Record a city name and fetch its weather (" + hotkeyLabel + ")"
}

func (t *Tray) onExit() {
	if t.callbacks.OnExit != nil {
		t.callbacks.OnExit()
	}
}

// Quit останавливает цикл трея; Run вернётся после OnExit.
func (t *Tray) Quit() {
	systray.Quit()
}
