// Package audio предоставляет запись аудио с микрофона.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	// SampleRate - частота дискретизации по умолчанию.
	SampleRate = 44100
	// Channels - количество каналов (mono).
	Channels = 1
	// BitDepth - разрядность сэмпла.
	BitDepth = 16
	// FramesPerBuffer - размер буфера.
	FramesPerBuffer = 1024
	// RecordDuration - длительность записи по умолчанию.
	RecordDuration = 5 * time.Second
)

// Clip - записанный фрагмент: PCM int16, mono.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration возвращает длительность фрагмента.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Level - прогресс записи для индикатора громкости.
type Level struct {
	Elapsed time.Duration
	Total   time.Duration
	RMS     float32 // 0..1
}

// Fraction возвращает долю записанного (0..1).
func (l Level) Fraction() float64 {
	if l.Total <= 0 {
		return 0
	}
	f := float64(l.Elapsed) / float64(l.Total)
	if f > 1 {
		f = 1
	}
	return f
}

// HardwareError - ошибка устройства записи.
type HardwareError struct {
	Op  string
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// Recorder записывает фрагмент фиксированной длины с микрофона по умолчанию.
type Recorder struct {
	mu          sync.Mutex
	sampleRate  int
	duration    time.Duration
	initialized bool
	logger      *slog.Logger
}

// New создаёт новый Recorder. PortAudio инициализируется при первой записи,
// чтобы отсутствие устройства проявлялось как ошибка записи, а не запуска.
func New(sampleRate int, duration time.Duration, logger *slog.Logger) *Recorder {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	if duration <= 0 {
		duration = RecordDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		sampleRate: sampleRate,
		duration:   duration,
		logger:     logger,
	}
}

// Record блокирует вызывающую горутину до окончания записи.
// onLevel вызывается после каждого буфера (может быть nil).
func (r *Recorder) Record(ctx context.Context, onLevel func(Level)) (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		if err := portaudio.Initialize(); err != nil {
			return nil, &HardwareError{Op: "initialize audio", Err: err}
		}
		r.initialized = true
	}

	if _, err := portaudio.DefaultInputDevice(); err != nil {
		return nil, &HardwareError{Op: "find input device", Err: err}
	}

	buffer := make([]int16, FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(
		Channels,              // input channels
		0,                     // output channels
		float64(r.sampleRate), // sample rate
		FramesPerBuffer,       // frames per buffer
		buffer,
	)
	if err != nil {
		return nil, &HardwareError{Op: "open input stream", Err: err}
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, &HardwareError{Op: "start input stream", Err: err}
	}
	defer stream.Stop()

	total := int(r.duration.Seconds() * float64(r.sampleRate))
	samples := make([]int16, 0, total)

	for len(samples) < total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := stream.Read(); err != nil {
			// Переполнение входного буфера не фатально: данные в buffer валидны
			if !errors.Is(err, portaudio.InputOverflowed) {
				return nil, &HardwareError{Op: "read input stream", Err: err}
			}
			r.logger.Debug("переполнение входного буфера")
		}

		chunk := buffer
		if remaining := total - len(samples); remaining < len(chunk) {
			chunk = chunk[:remaining]
		}
		samples = append(samples, chunk...)

		if onLevel != nil {
			onLevel(Level{
				Elapsed: time.Duration(len(samples)) * time.Second / time.Duration(r.sampleRate),
				Total:   r.duration,
				RMS:     RMS(chunk),
			})
		}
	}

	return &Clip{
		Samples:    samples,
		SampleRate: r.sampleRate,
		Channels:   Channels,
	}, nil
}

// Close освобождает ресурсы.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		portaudio.Terminate()
		r.initialized = false
	}
}

// RMS вычисляет уровень громкости сэмплов, нормализованный к 0..1
// (речь обычно даёт 0.1-0.3 RMS, поэтому усиливаем в 3 раза).
func RMS(samples []int16) float32 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		v := float64(s) / math.MaxInt16
		sum += v * v
	}

	level := float32(math.Sqrt(sum/float64(len(samples)))) * 3
	if level > 1 {
		level = 1
	}
	return level
}
