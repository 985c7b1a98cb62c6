// Package app содержит основную логику приложения.
package app

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"weathervoice/internal/audio"
	"weathervoice/internal/config"
	"weathervoice/internal/dialog"
	"weathervoice/internal/hotkey"
	"weathervoice/internal/icons"
	"weathervoice/internal/notify"
	"weathervoice/internal/report"
	"weathervoice/internal/speech"
	"weathervoice/internal/tray"
	"weathervoice/internal/weather"
	"weathervoice/internal/workflow"
)

// shutdownTimeout - сколько ждать идущий прогон при выходе.
const shutdownTimeout = 2 * time.Second

// trayView - то, что диспетчер меняет в трее.
type trayView interface {
	SetStatus(message string, icon icons.Kind)
	SetTriggerEnabled(enabled bool)
	EnableReport()
	SetHotkeyLabel(label string)
	SetNotifications(enabled bool)
}

// reportView - окно отчёта.
type reportView interface {
	Show()
	Hide()
	BeginRecording()
	EndRecording()
	SetLevel(l audio.Level)
	SetResult(res *workflow.Result)
	SetStatus(msg string, severity workflow.Severity)
}

// notifier - системные уведомления.
type notifier interface {
	SetEnabled(enabled bool)
	Recording()
	Recognized(query string)
	Report(location string, tempC float64, condition, outfit string)
	Error(title, msg string)
}

// App представляет главное приложение.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	recorder      *audio.Recorder
	speechFactory *speech.Factory
	weather       *weatherSource
	runner        *workflow.Runner
	hotkey        *hotkey.Handler
	systray       *tray.Tray

	// UI, меняется только из диспетчера
	tray      trayView
	reportWin reportView
	notifier  notifier
	showError func(title, message string)
	showInfo  func(title, message string)

	// activeRun - прогон, чей статус показан последним (только диспетчер)
	activeRun string

	ui     chan func()
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	configErr error
}

// New создаёт новое приложение.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	settings := cfg.Settings()

	speechFactory := speech.NewFactory()
	if err := speechFactory.Load(settings.SpeechConfig()); err != nil {
		return nil, err
	}

	recorder := audio.New(settings.Audio.SampleRate, settings.Audio.Duration, logger)
	transcriber := speech.NewTranscriber(speechFactory, "", logger)
	source := newWeatherSource(weather.NewClient(settings.WeatherConfig(), logger))

	ctx, cancel := context.WithCancel(context.Background())
	reportWin := report.New(report.DefaultConfig())

	a := &App{
		config:        cfg,
		logger:        logger,
		recorder:      recorder,
		speechFactory: speechFactory,
		weather:       source,
		runner:        workflow.New(recorder, transcriber, source, logger),
		reportWin:     reportWin,
		notifier:      notify.New(settings.Notifications),
		showError:     dialog.ShowError,
		showInfo:      dialog.ShowInfo,
		ui:            make(chan func(), 16),
		ctx:           ctx,
		cancel:        cancel,
		// Без ключа погоды приложение работает, но сообщает о проблеме
		configErr: settings.Validate(),
	}

	a.hotkey = hotkey.New(a.Trigger, logger)
	reportWin.OnClose(a.onReportClosed)

	a.systray = tray.New(tray.Callbacks{
		OnGetWeather: a.Trigger,
		OnShowReport: func() {
			a.post(a.reportWin.Show)
		},
		OnHotkeyClick: func() {
			go a.changeHotkey()
		},
		OnNotificationsToggle: a.toggleNotifications,
		OnExit:                a.Close,
	}, settings.Notifications, settings.Hotkey.String())
	a.tray = a.systray

	return a, nil
}

// Run запускает приложение. Блокирует до выхода из трея.
func (a *App) Run() {
	a.systray.Run(func() {
		// Регистрируем горячую клавишу после инициализации трея
		hk := a.config.Hotkey()
		if err := a.hotkey.Register(hk); err != nil {
			a.logger.Error("ошибка регистрации горячей клавиши", "error", err)
			a.notifier.Error("Hotkey", "Could not register "+hk.String())
		}

		a.config.Watch(a.logger, a.onConfigChange)

		go a.dispatch(a.ctx)

		if a.configErr != nil {
			a.logger.Warn("конфигурация неполная", "error", a.configErr, "file", a.config.Path())
			go a.showError("Configuration Error", a.configErr.Error())
		}

		a.logger.Info("приложение запущено", "hotkey", hotkeyLabel(a.hotkey.Current()))
	})
}

// Trigger запускает прогон. Повторные нажатия во время прогона игнорируются.
func (a *App) Trigger() {
	if !a.runner.Start(a.ctx) {
		a.logger.Debug("запрос погоды уже выполняется")
	}
}

// Quit завершает цикл трея. Run вернётся после Close.
func (a *App) Quit() {
	a.systray.Quit()
}

// Close останавливает приложение.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.logger.Info("завершение работы")
		a.cancel()

		if err := a.hotkey.Unregister(); err != nil {
			a.logger.Warn("ошибка отмены горячей клавиши", "error", err)
		}
		a.reportWin.Hide()

		// Запись нельзя прервать, ждём ограниченное время
		done := make(chan struct{})
		go func() {
			a.runner.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			a.logger.Warn("прогон не завершился до выхода")
		}
		a.recorder.Close()
	})
}

// post передаёт изменение UI в диспетчер.
func (a *App) post(fn func()) {
	select {
	case a.ui <- fn:
	case <-a.ctx.Done():
	}
}

func (a *App) toggleNotifications() bool {
	enabled, err := a.config.ToggleNotifications()
	if err != nil {
		a.logger.Error("не удалось сохранить настройку уведомлений", "error", err)
	}
	a.notifier.SetEnabled(enabled)
	return enabled
}

// changeHotkey показывает диалог выбора и применяет новую клавишу.
func (a *App) changeHotkey() {
	hk, err := dialog.SelectHotkey(a.config.Hotkey())
	if err != nil {
		if errors.Is(err, dialog.ErrNoModifiers) {
			a.showError("Hotkey", "Select at least one modifier.")
		}
		return
	}

	if err := a.config.SetHotkey(hk); err != nil {
		a.logger.Error("не удалось сохранить горячую клавишу", "error", err)
		a.showError("Hotkey", err.Error())
		return
	}
	if err := a.applyHotkey(hk); err != nil {
		a.showError("Hotkey", "Could not register "+hk.String())
		return
	}
	a.showInfo("Hotkey", "Weather hotkey changed to "+hk.String())
}

// applyHotkey регистрирует клавишу и показывает в трее ту, что реально активна.
func (a *App) applyHotkey(hk config.HotkeyConfig) error {
	err := a.hotkey.Register(hk)
	if err != nil {
		a.logger.Error("ошибка регистрации горячей клавиши", "error", err)
		a.post(func() { a.notifier.Error("Hotkey", "Could not register "+hk.String()) })
	}
	label := hotkeyLabel(a.hotkey.Current())
	a.post(func() { a.tray.SetHotkeyLabel(label) })
	return err
}

// hotkeyLabel - подпись для трея, "none" если клавиша не зарегистрирована.
func hotkeyLabel(hk config.HotkeyConfig) string {
	if hk.Key == "" {
		return "none"
	}
	return hk.String()
}

// onReportClosed вызывается, когда пользователь закрыл окно отчёта.
// Отчёт остаётся доступен через "Show report".
func (a *App) onReportClosed() {
	a.logger.Debug("окно отчёта закрыто пользователем")
}

// onConfigChange применяет изменения файла конфигурации без перезапуска.
func (a *App) onConfigChange(prev, next config.Settings) {
	if prev.Speech != next.Speech {
		if err := a.speechFactory.Load(next.SpeechConfig()); err != nil {
			a.logger.Error("ошибка смены сервиса распознавания", "error", err)
			a.post(func() { a.notifier.Error("Speech", err.Error()) })
		} else {
			a.logger.Info("сервис распознавания переключён", "engine", a.speechFactory.CurrentEngine())
		}
	}

	if prev.Weather != next.Weather {
		a.weather.Swap(weather.NewClient(next.WeatherConfig(), a.logger))
		a.logger.Info("настройки погоды обновлены")
	}

	if prev.Hotkey.Key != next.Hotkey.Key || !slices.Equal(prev.Hotkey.Modifiers, next.Hotkey.Modifiers) {
		_ = a.applyHotkey(next.Hotkey)
	}

	if prev.Notifications != next.Notifications {
		a.notifier.SetEnabled(next.Notifications)
		a.post(func() { a.tray.SetNotifications(next.Notifications) })
	}

	if prev.Audio != next.Audio {
		a.logger.Warn("параметры записи применятся после перезапуска")
	}
}
