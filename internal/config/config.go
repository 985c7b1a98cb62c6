// Package config предоставляет конфигурацию приложения с сохранением в файл.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"weathervoice/internal/audio"
	"weathervoice/internal/speech"
	"weathervoice/internal/weather"
)

const (
	// EnvPrefix - префикс переменных окружения (WEATHERVOICE_WEATHER_API_KEY).
	EnvPrefix = "WEATHERVOICE"
	// FileName - имя файла конфигурации без расширения.
	FileName = "config"
)

// WeatherSettings - доступ к weatherapi.com.
type WeatherSettings struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ForecastDays int           `mapstructure:"forecast_days"`
}

// SpeechSettings - сервис распознавания речи.
type SpeechSettings struct {
	Engine   string        `mapstructure:"engine"` // openai, google
	APIKey   string        `mapstructure:"api_key"`
	URL      string        `mapstructure:"url"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AudioSettings - параметры записи.
type AudioSettings struct {
	SampleRate int           `mapstructure:"sample_rate"`
	Duration   time.Duration `mapstructure:"duration"`
}

// LogSettings - параметры логирования.
type LogSettings struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Settings - снимок всех настроек.
type Settings struct {
	Weather       WeatherSettings `mapstructure:"weather"`
	Speech        SpeechSettings  `mapstructure:"speech"`
	Audio         AudioSettings   `mapstructure:"audio"`
	Hotkey        HotkeyConfig    `mapstructure:"hotkey"`
	Notifications bool            `mapstructure:"notifications"`
	Log           LogSettings     `mapstructure:"log"`
}

// Config хранит настройки приложения.
type Config struct {
	mu          sync.RWMutex
	v           *viper.Viper
	settings    Settings
	configPath  string // куда сохраняются изменения
	subscribers []func(prev, next Settings)
}

// Load загружает .env, файл конфигурации и переменные окружения.
func Load() (*Config, error) {
	return LoadFrom("", ".env")
}

// LoadFrom загружает конфигурацию из указанного файла.
// Пустой configFile - поиск config.yaml рядом с бинарником, в "." и в $HOME/.weathervoice.
// Пустой envFile - .env не читается.
func LoadFrom(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		// Переменные окружения имеют приоритет над .env
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Общепринятые имена без префикса
	_ = v.BindEnv("weather.api_key", EnvPrefix+"_WEATHER_API_KEY", "WEATHER_API_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		if dir := execDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.weathervoice")
	}

	if err := v.ReadInConfig(); err != nil {
		// Без файла работаем на значениях по умолчанию
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	c := &Config{v: v, configPath: writePath(v, configFile)}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", weather.DefaultBaseURL)
	v.SetDefault("weather.timeout", weather.DefaultTimeout)
	v.SetDefault("weather.forecast_days", weather.DefaultForecastDays)

	v.SetDefault("speech.engine", string(speech.EngineGoogle))
	v.SetDefault("speech.api_key", "")
	v.SetDefault("speech.url", "")
	v.SetDefault("speech.model", "")
	v.SetDefault("speech.language", "en-US")
	v.SetDefault("speech.timeout", speech.DefaultTimeout)

	v.SetDefault("audio.sample_rate", audio.SampleRate)
	v.SetDefault("audio.duration", audio.RecordDuration)

	v.SetDefault("hotkey.modifiers", []string{string(ModCtrl), string(ModShift)})
	v.SetDefault("hotkey.key", string(KeyW))

	v.SetDefault("notifications", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// execDir возвращает каталог бинарника (с разрешёнными симлинками).
func execDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return ""
	}
	return filepath.Dir(execPath)
}

func writePath(v *viper.Viper, configFile string) string {
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	if configFile != "" {
		return configFile
	}
	if dir := execDir(); dir != "" {
		return filepath.Join(dir, FileName+".yaml")
	}
	return FileName + ".yaml"
}

// reload перечитывает снимок настроек из viper.
func (c *Config) reload() error {
	var s Settings
	if err := c.v.Unmarshal(&s); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return nil
}

// Path возвращает путь файла, в который сохраняются изменения.
func (c *Config) Path() string {
	return c.configPath
}

// Settings возвращает копию текущих настроек.
func (c *Config) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.settings
	s.Hotkey.Modifiers = slices.Clone(s.Hotkey.Modifiers)
	return s
}

// Hotkey возвращает текущую горячую клавишу.
func (c *Config) Hotkey() HotkeyConfig {
	return c.Settings().Hotkey
}

// SetHotkey устанавливает горячую клавишу и сохраняет её в файл.
func (c *Config) SetHotkey(hk HotkeyConfig) error {
	if err := hk.Validate(); err != nil {
		return err
	}

	mods := make([]string, len(hk.Modifiers))
	for i, m := range hk.Modifiers {
		mods[i] = string(m)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.save(map[string]any{"hotkey.modifiers": mods, "hotkey.key": string(hk.Key)}); err != nil {
		return err
	}
	c.settings.Hotkey = HotkeyConfig{Modifiers: slices.Clone(hk.Modifiers), Key: hk.Key}
	return nil
}

// ToggleNotifications переключает состояние уведомлений.
// Новое состояние применяется, даже если его не удалось сохранить.
func (c *Config) ToggleNotifications() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Notifications = !c.settings.Notifications
	return c.settings.Notifications, c.save(map[string]any{"notifications": c.settings.Notifications})
}

// save дописывает значения в файл конфигурации.
// Пишет только содержимое файла и изменения: ключи из окружения в файл не попадают.
func (c *Config) save(values map[string]any) error {
	w := viper.New()
	w.SetConfigFile(c.configPath)
	if err := w.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read %s: %w", c.configPath, err)
		}
	}
	for k, val := range values {
		w.Set(k, val)
	}

	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := w.WriteConfigAs(c.configPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.configPath, err)
	}
	return nil
}

// Watch следит за файлом конфигурации и вызывает fn после каждого изменения.
// Ничего не делает, если файл не был найден при загрузке.
func (c *Config) Watch(logger *slog.Logger, fn func(prev, next Settings)) {
	if logger == nil {
		logger = slog.Default()
	}

	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	first := len(c.subscribers) == 1
	c.mu.Unlock()

	if !first || c.v.ConfigFileUsed() == "" {
		return
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("файл конфигурации изменён", "file", e.Name, "op", e.Op.String())

		prev := c.Settings()
		if err := c.reload(); err != nil {
			logger.Error("не удалось перечитать конфигурацию", "error", err)
			return
		}
		next := c.Settings()

		c.mu.RLock()
		subs := slices.Clone(c.subscribers)
		c.mu.RUnlock()
		for _, sub := range subs {
			sub(prev, next)
		}
	})
	c.v.WatchConfig()
}

// Validate проверяет настройки, без которых прогон невозможен.
func (c *Config) Validate() error {
	return c.Settings().Validate()
}

// Validate проверяет настройки, без которых прогон невозможен.
func (s Settings) Validate() error {
	var errs []error
	if s.Weather.APIKey == "" {
		errs = append(errs, fmt.Errorf("weather.api_key is not set (%s_WEATHER_API_KEY or WEATHER_API_KEY)", EnvPrefix))
	}
	switch speech.Engine(s.Speech.Engine) {
	case speech.EngineOpenAI, speech.EngineGoogle:
	default:
		errs = append(errs, fmt.Errorf("unknown speech.engine %q", s.Speech.Engine))
	}
	if s.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", s.Audio.SampleRate))
	}
	if s.Audio.Duration <= 0 {
		errs = append(errs, fmt.Errorf("audio.duration must be positive, got %s", s.Audio.Duration))
	}
	if err := s.Hotkey.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("hotkey: %w", err))
	}
	return errors.Join(errs...)
}

// WeatherConfig возвращает настройки клиента погоды.
func (s Settings) WeatherConfig() weather.Config {
	return weather.Config{
		BaseURL:      s.Weather.BaseURL,
		APIKey:       s.Weather.APIKey,
		Timeout:      s.Weather.Timeout,
		ForecastDays: s.Weather.ForecastDays,
	}
}

// SpeechConfig возвращает настройки распознавателя.
// Без speech.api_key используется OPENAI_API_KEY или GOOGLE_API_KEY по типу сервиса.
func (s Settings) SpeechConfig() speech.Config {
	engine := speech.Engine(s.Speech.Engine)

	key := s.Speech.APIKey
	if key == "" {
		switch engine {
		case speech.EngineOpenAI:
			key = os.Getenv("OPENAI_API_KEY")
		case speech.EngineGoogle:
			key = os.Getenv("GOOGLE_API_KEY")
		}
	}

	return speech.Config{
		Engine:   engine,
		APIKey:   key,
		URL:      s.Speech.URL,
		Model:    s.Speech.Model,
		Language: s.Speech.Language,
		Timeout:  s.Speech.Timeout,
	}
}

// NewLogger создаёт slog.Logger по настройкам log.level и log.format.
func (s Settings) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(s.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(s.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
