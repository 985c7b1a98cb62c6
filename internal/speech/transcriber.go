package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"weathervoice/internal/audio"
)

var errNoRecognizer = errors.New("распознаватель не настроен")

// Transcriber сохраняет фрагмент в WAV и отправляет его текущему распознавателю.
type Transcriber struct {
	factory *Factory
	tempDir string // "" - системный временный каталог
	logger  *slog.Logger
}

// NewTranscriber создаёт Transcriber поверх фабрики.
func NewTranscriber(factory *Factory, tempDir string, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{
		factory: factory,
		tempDir: tempDir,
		logger:  logger,
	}
}

// Transcribe возвращает распознанное название места.
// Одна попытка, без повторов. Локальные сбои (временный файл, пустая запись)
// тоже возвращаются как *ServiceError: распознавание не состоялось.
func (t *Transcriber) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if !t.factory.IsLoaded() {
		return "", &ServiceError{Engine: "none", Err: errNoRecognizer}
	}
	rec, lang := t.factory.Current()

	wav, err := t.persist(clip)
	if err != nil {
		return "", &ServiceError{Engine: rec.Name(), Err: err}
	}

	t.logger.Debug("отправка на распознавание", "engine", rec.Name(), "bytes", len(wav))

	text, err := rec.Transcribe(ctx, wav, lang)
	if err != nil {
		return "", err
	}

	query := NormalizeQuery(text)
	if query == "" {
		return "", ErrUnintelligible
	}

	t.logger.Info("речь распознана", "engine", rec.Name(), "query", query)
	return query, nil
}

// persist пишет фрагмент во временный WAV файл и читает его обратно.
func (t *Transcriber) persist(clip *audio.Clip) ([]byte, error) {
	f, err := os.CreateTemp(t.tempDir, "voice_input-*.wav")
	if err != nil {
		return nil, fmt.Errorf("временный файл: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("временный файл: %w", err)
	}

	if err := audio.SaveWAV(path, clip); err != nil {
		return nil, fmt.Errorf("сохранение WAV: %w", err)
	}
	return os.ReadFile(path)
}
