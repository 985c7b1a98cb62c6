// WeatherVoice - приложение в системном трее, которое узнаёт погоду по голосу.
//
// Записывает 5 секунд речи, распознаёт название города, запрашивает
// погоду и прогноз на 3 дня и подсказывает, как одеться.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"weathervoice/internal/app"
	"weathervoice/internal/config"
	"weathervoice/internal/hotkey"
)

// Version устанавливается при сборке через -ldflags.
var Version = "dev"

func main() {
	// Запускаем в главном потоке (требование для macOS и некоторых GUI)
	hotkey.RunOnMainThread(run)
}

func run() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	settings := cfg.Settings()
	logger := settings.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	logger.Info("WeatherVoice запускается", "version", Version, "config", cfg.Path())

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("ошибка инициализации", "error", err)
		os.Exit(1)
	}

	// Ctrl+C в терминале завершает приложение так же, как пункт Quit
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info("получен сигнал завершения", "signal", sig.String())
		application.Quit()
	}()

	logger.Info("нажмите горячую клавишу, чтобы узнать погоду", "hotkey", settings.Hotkey.String())
	application.Run()
}
