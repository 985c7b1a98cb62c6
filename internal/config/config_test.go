package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"weathervoice/internal/speech"
)

// clearEnv hides variables that may be set on the developer machine.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WEATHER_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY",
		"WEATHERVOICE_WEATHER_API_KEY", "WEATHERVOICE_WEATHER_TIMEOUT",
		"WEATHERVOICE_SPEECH_ENGINE", "WEATHERVOICE_SPEECH_API_KEY",
		"WEATHERVOICE_LOG_LEVEL", "WEATHERVOICE_NOTIFICATIONS",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	s := cfg.Settings()

	if s.Weather.Timeout != 15*time.Second || s.Weather.ForecastDays != 3 {
		t.Errorf("weather = %+v", s.Weather)
	}
	if s.Weather.BaseURL != "https://api.weatherapi.com/v1" {
		t.Errorf("BaseURL = %q", s.Weather.BaseURL)
	}
	if s.Speech.Engine != "google" || s.Speech.Language != "en-US" {
		t.Errorf("speech = %+v", s.Speech)
	}
	if s.Audio.SampleRate != 44100 || s.Audio.Duration != 5*time.Second {
		t.Errorf("audio = %+v", s.Audio)
	}
	if got := cfg.Hotkey().String(); got != "ctrl+shift+w" {
		t.Errorf("hotkey = %q, want ctrl+shift+w", got)
	}
	if !cfg.Settings().Notifications {
		t.Error("notifications must be on by default")
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
weather:
  api_key: file-key
  timeout: 5s
speech:
  engine: openai
  model: gpt-4o-transcribe
hotkey:
  modifiers: [alt]
  key: f5
notifications: false
log:
  level: debug
`)

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	s := cfg.Settings()

	if s.Weather.APIKey != "file-key" || s.Weather.Timeout != 5*time.Second {
		t.Errorf("weather = %+v", s.Weather)
	}
	if s.Weather.ForecastDays != 3 {
		t.Errorf("unset keys must keep defaults, ForecastDays = %d", s.Weather.ForecastDays)
	}
	if s.Speech.Engine != "openai" || s.Speech.Model != "gpt-4o-transcribe" {
		t.Errorf("speech = %+v", s.Speech)
	}
	if got := s.Hotkey.String(); got != "alt+f5" {
		t.Errorf("hotkey = %q", got)
	}
	if s.Notifications {
		t.Error("notifications = true, want false")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "weather: [unclosed")

	if _, err := LoadFrom(path, ""); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "weather:\n  api_key: file-key\n  timeout: 5s\n")

	t.Setenv("WEATHER_API_KEY", "env-key")
	t.Setenv("WEATHERVOICE_WEATHER_TIMEOUT", "7s")
	t.Setenv("WEATHERVOICE_SPEECH_ENGINE", "openai")

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	s := cfg.Settings()

	if s.Weather.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", s.Weather.APIKey)
	}
	if s.Weather.Timeout != 7*time.Second {
		t.Errorf("Timeout = %s, want 7s", s.Weather.Timeout)
	}
	if s.Speech.Engine != "openai" {
		t.Errorf("Engine = %q", s.Speech.Engine)
	}

	// The prefixed name wins over the bare alias
	t.Setenv("WEATHERVOICE_WEATHER_API_KEY", "prefixed-key")
	cfg, err = LoadFrom(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Settings().Weather.APIKey; got != "prefixed-key" {
		t.Errorf("APIKey = %q, want prefixed-key", got)
	}
}

func TestDotEnv(t *testing.T) {
	clearEnv(t)
	// Unset for real so that .env may set it; t.Setenv restores it afterwards
	os.Unsetenv("WEATHER_API_KEY")

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "WEATHER_API_KEY=dotenv-key\n")

	cfg, err := LoadFrom(filepath.Join(dir, "config.yaml"), envFile)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got := cfg.Settings().Weather.APIKey; got != "dotenv-key" {
		t.Errorf("APIKey = %q, want dotenv-key", got)
	}

	// A missing .env is not an error
	if _, err := LoadFrom(filepath.Join(dir, "config.yaml"), filepath.Join(dir, "nope.env")); err != nil {
		t.Errorf("missing .env: %v", err)
	}
}

func TestSetHotkeyPersists(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_API_KEY", "must-not-be-written")
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatal(err)
	}

	hk := HotkeyConfig{Modifiers: []Modifier{ModAlt, ModSuper}, Key: KeyF5}
	if err := cfg.SetHotkey(hk); err != nil {
		t.Fatalf("SetHotkey: %v", err)
	}
	if got := cfg.Hotkey().String(); got != "alt+super+f5" {
		t.Errorf("Hotkey() = %q", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if strings.Contains(string(data), "must-not-be-written") {
		t.Errorf("environment secrets leaked into the file:\n%s", data)
	}

	reloaded, err := LoadFrom(path, "")
	if err != nil {
		t.Fatal(err)
	}
	got := reloaded.Hotkey()
	if got.Key != KeyF5 || !slices.Equal(got.Modifiers, hk.Modifiers) {
		t.Errorf("reloaded hotkey = %+v", got)
	}

	if err := cfg.SetHotkey(HotkeyConfig{Key: "pause"}); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestToggleNotificationsPersists(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "hotkey:\n  key: f2\n")

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatal(err)
	}

	enabled, err := cfg.ToggleNotifications()
	if err != nil || enabled {
		t.Fatalf("ToggleNotifications() = %v, %v", enabled, err)
	}

	reloaded, err := LoadFrom(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Settings().Notifications {
		t.Error("toggle not persisted")
	}
	if reloaded.Hotkey().Key != KeyF2 {
		t.Error("existing file content lost on save")
	}
}

func TestValidate(t *testing.T) {
	valid := Settings{
		Weather: WeatherSettings{APIKey: "k"},
		Speech:  SpeechSettings{Engine: "openai"},
		Audio:   AudioSettings{SampleRate: 44100, Duration: 5 * time.Second},
		Hotkey:  HotkeyConfig{Modifiers: []Modifier{ModCtrl}, Key: KeyW},
	}

	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr string
	}{
		{name: "valid", modify: func(*Settings) {}},
		{name: "missing key", modify: func(s *Settings) { s.Weather.APIKey = "" }, wantErr: "weather.api_key"},
		{name: "unknown engine", modify: func(s *Settings) { s.Speech.Engine = "vosk" }, wantErr: "speech.engine"},
		{name: "zero duration", modify: func(s *Settings) { s.Audio.Duration = 0 }, wantErr: "audio.duration"},
		{name: "bad modifier", modify: func(s *Settings) { s.Hotkey.Modifiers = []Modifier{"hyper"} }, wantErr: "hotkey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.modify(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSpeechConfigKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	s := Settings{Speech: SpeechSettings{Engine: "openai", Language: "en-US"}}
	if got := s.SpeechConfig(); got.APIKey != "sk-openai" || got.Engine != speech.EngineOpenAI {
		t.Errorf("openai SpeechConfig() = %+v", got)
	}

	s.Speech.Engine = "google"
	if got := s.SpeechConfig(); got.APIKey != "g-key" {
		t.Errorf("google APIKey = %q", got.APIKey)
	}

	s.Speech.APIKey = "explicit"
	if got := s.SpeechConfig(); got.APIKey != "explicit" {
		t.Errorf("explicit APIKey = %q", got.APIKey)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := Settings{Log: LogSettings{Level: "warn", Format: "json"}}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "run", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if rec["msg"] != "shown" || rec["run"] != "abc" {
		t.Errorf("record = %v", rec)
	}
}

func TestWatchReloads(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "speech:\n  engine: google\n")

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatal(err)
	}

	changed := make(chan Settings, 8)
	cfg.Watch(nil, func(prev, next Settings) {
		changed <- next
	})

	writeFile(t, path, "speech:\n  engine: openai\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case next := <-changed:
			if next.Speech.Engine == "openai" {
				if cfg.Settings().Speech.Engine != "openai" {
					t.Error("Settings() not updated")
				}
				return
			}
		case <-deadline:
			t.Fatal("no reload after the file changed")
		}
	}
}
