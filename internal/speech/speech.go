// Package speech предоставляет абстракцию для сервисов распознавания речи.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Engine тип сервиса распознавания.
type Engine string

const (
	// EngineOpenAI - OpenAI-совместимый /v1/audio/transcriptions (OpenAI, whisper-серверы).
	EngineOpenAI Engine = "openai"
	// EngineGoogle - Google Cloud Speech-to-Text REST.
	EngineGoogle Engine = "google"
)

// DefaultTimeout - таймаут запроса к сервису распознавания.
const DefaultTimeout = 30 * time.Second

// Recognizer - интерфейс для сервисов распознавания речи.
type Recognizer interface {
	// Transcribe распознаёт речь из WAV файла (16 бит PCM, mono).
	// lang - язык распознавания ("en-US", "" - по умолчанию сервиса).
	// Возвращает лучшую гипотезу или ErrUnintelligible, если текста нет.
	Transcribe(ctx context.Context, wav []byte, lang string) (string, error)

	// Name возвращает название сервиса (для логирования).
	Name() string
}

// Config содержит настройки для создания распознавателя.
type Config struct {
	// Engine - тип сервиса (openai, google).
	Engine Engine

	// APIKey - ключ доступа к сервису.
	APIKey string

	// URL - базовый адрес сервиса (пусто - адрес по умолчанию).
	URL string

	// Model - модель распознавания (только openai).
	Model string

	// Language - язык распознавания.
	Language string

	// Timeout - таймаут одного запроса.
	Timeout time.Duration
}

// ErrUnintelligible - сервис не смог извлечь текст (тишина, шум).
var ErrUnintelligible = errors.New("речь не распознана")

// ServiceError - сервис недоступен или вернул ошибку.
type ServiceError struct {
	Engine string
	Err    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NormalizeQuery убирает пробелы и завершающую пунктуацию ("London." -> "London").
func NormalizeQuery(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return text
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
