package app

import (
	"context"
	"time"

	"weathervoice/internal/icons"
	"weathervoice/internal/workflow"
)

// dispatchInterval - период опроса событий (~30fps).
const dispatchInterval = 33 * time.Millisecond

// dispatch - единственная горутина, которая меняет трей, окно и уведомления.
func (a *App) dispatch(ctx context.Context) {
	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.drain()
		}
	}
}

// drain применяет все накопленные события. Из подряд идущих событий
// уровня записи применяется только последнее.
func (a *App) drain() {
	var pending *workflow.Event
	flush := func() {
		if pending != nil {
			a.apply(*pending)
			pending = nil
		}
	}

	for {
		select {
		case fn := <-a.ui:
			flush()
			fn()
		case ev := <-a.runner.Events():
			if ev.Kind == workflow.EventProgress {
				pending = &ev
				continue
			}
			flush()
			a.apply(ev)
		default:
			flush()
			return
		}
	}
}

// apply отражает одно событие прогона в UI.
func (a *App) apply(ev workflow.Event) {
	switch ev.Kind {
	case workflow.EventStatus:
		a.activeRun = ev.RunID
		a.tray.SetTriggerEnabled(false)
		a.tray.SetStatus(ev.Message, stateIcon(ev.State))
		a.reportWin.SetStatus(ev.Message, ev.Severity)

		switch ev.State {
		case workflow.StateRecording:
			// Отчёт прошлого прогона не должен оставаться под новым статусом
			a.reportWin.SetResult(nil)
			a.reportWin.BeginRecording()
			a.reportWin.Show()
			a.notifier.Recording()
		case workflow.StateRecognizing:
			a.reportWin.EndRecording()
			if ev.Query != "" {
				a.notifier.Recognized(ev.Query)
			}
		}

	case workflow.EventProgress:
		a.reportWin.SetLevel(ev.Level)

	case workflow.EventReport:
		res := ev.Result
		a.reportWin.SetResult(res)
		a.reportWin.SetStatus(ev.Message, ev.Severity)
		a.tray.SetStatus(ev.Message, icons.Idle)
		a.tray.EnableReport()
		a.notifier.Report(res.Report.Location, res.Report.TempC, res.Report.Condition, string(res.Outfit.Category))

	case workflow.EventError:
		a.reportWin.EndRecording()
		a.reportWin.SetStatus(ev.Message, ev.Severity)
		a.tray.SetStatus(ev.Message, icons.Failed)
		// Диалог блокирует, показываем его вне диспетчера
		go a.showError(ev.Title, ev.Dialog)

	case workflow.EventIdle:
		// Idle прошлого прогона может прийти после старта следующего
		if ev.RunID != a.activeRun {
			return
		}
		a.tray.SetTriggerEnabled(true)
	}
}

func stateIcon(s workflow.State) icons.Kind {
	switch s {
	case workflow.StateRecording:
		return icons.Recording
	case workflow.StateRecognizing, workflow.StateFetchingWeather:
		return icons.Working
	case workflow.StateError:
		return icons.Failed
	default:
		return icons.Idle
	}
}
