// Package workflow связывает запись, распознавание и запрос погоды в один прогон.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"weathervoice/internal/audio"
	"weathervoice/internal/outfit"
	"weathervoice/internal/speech"
	"weathervoice/internal/weather"
)

// eventBuffer - ёмкость канала событий.
const eventBuffer = 64

// Capturer записывает фрагмент с микрофона.
type Capturer interface {
	Record(ctx context.Context, onLevel func(audio.Level)) (*audio.Clip, error)
}

// Transcriber превращает фрагмент в название места.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *audio.Clip) (string, error)
}

// WeatherSource возвращает сводку погоды по названию места.
type WeatherSource interface {
	Lookup(ctx context.Context, query string) (*weather.Report, error)
}

// Result - итог успешного прогона.
type Result struct {
	Query  string
	Report *weather.Report
	Outfit outfit.Advice
}

// Runner выполняет прогоны по одному за раз.
type Runner struct {
	capturer    Capturer
	transcriber Transcriber
	weather     WeatherSource
	logger      *slog.Logger

	inFlight atomic.Bool
	state    atomic.Int32
	events   chan Event
	wg       sync.WaitGroup
}

// New создаёт Runner.
func New(c Capturer, t Transcriber, w WeatherSource, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		capturer:    c,
		transcriber: t,
		weather:     w,
		logger:      logger,
		events:      make(chan Event, eventBuffer),
	}
}

// Events возвращает канал событий для UI.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// State возвращает текущее состояние.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Busy сообщает, идёт ли прогон.
func (r *Runner) Busy() bool {
	return r.inFlight.Load()
}

// Wait блокирует до завершения текущего прогона.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Start запускает прогон в отдельной горутине.
// Возвращает false, если прогон уже идёт.
func (r *Runner) Start(ctx context.Context) bool {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.logger.Debug("прогон уже идёт, триггер проигнорирован")
		return false
	}

	id := uuid.NewString()
	r.wg.Add(1)
	go r.run(ctx, id)
	return true
}

func (r *Runner) run(ctx context.Context, id string) {
	defer r.wg.Done()

	logger := r.logger.With("run", id)
	logger.Info("прогон начат")

	res, err := r.execute(ctx, id, logger)
	if err != nil {
		d := describeError(err)
		logger.Error("прогон завершился ошибкой", "state", r.State().String(), "error", err)
		r.transition(ctx, Event{
			RunID:    id,
			Kind:     EventError,
			State:    StateError,
			Severity: SeverityError,
			Message:  d.Status,
			Title:    d.Title,
			Dialog:   d.Dialog,
			Err:      err,
		})
	} else {
		r.transition(ctx, Event{
			RunID:    id,
			Kind:     EventReport,
			State:    StateDisplaying,
			Severity: SeveritySuccess,
			Message:  "Weather updated for " + res.Report.Location,
			Query:    res.Query,
			Result:   res,
		})
		logger.Info("прогон завершён", "location", res.Report.Location, "outfit", res.Outfit.Category)
	}

	r.state.Store(int32(StateIdle))
	r.inFlight.Store(false)
	r.send(ctx, Event{RunID: id, Kind: EventIdle, State: StateIdle, Severity: SeverityInfo})
}

// execute проходит стадии по порядку и останавливается на первой ошибке.
func (r *Runner) execute(ctx context.Context, id string, logger *slog.Logger) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("паника в прогоне", "panic", p)
			res, err = nil, fmt.Errorf("internal error: %v", p)
		}
	}()

	r.transition(ctx, Event{
		RunID: id, Kind: EventStatus, State: StateRecording,
		Severity: SeverityProgress, Message: "Recording... Speak now",
	})
	clip, err := r.capturer.Record(ctx, func(l audio.Level) {
		r.progress(Event{
			RunID: id, Kind: EventProgress, State: StateRecording,
			Severity: SeverityProgress, Level: l,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("фрагмент записан", "duration", clip.Duration())

	r.transition(ctx, Event{
		RunID: id, Kind: EventStatus, State: StateRecognizing,
		Severity: SeverityProgress, Message: "Processing your voice...",
	})
	query, err := r.transcriber.Transcribe(ctx, clip)
	if err != nil {
		return nil, err
	}
	logger = logger.With("query", query)
	r.send(ctx, Event{
		RunID: id, Kind: EventStatus, State: StateRecognizing,
		Severity: SeveritySuccess, Message: "Recognized: " + query, Query: query,
	})

	r.transition(ctx, Event{
		RunID: id, Kind: EventStatus, State: StateFetchingWeather,
		Severity: SeverityProgress, Message: "Connecting to weather service...",
	})
	rep, err := r.weather.Lookup(ctx, query)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, errors.New("weather service returned no data")
	}

	return &Result{
		Query:  query,
		Report: rep,
		Outfit: outfit.Recommend(rep.TempC),
	}, nil
}

// transition меняет состояние и публикует событие.
func (r *Runner) transition(ctx context.Context, ev Event) {
	r.state.Store(int32(ev.State))
	r.send(ctx, ev)
}

// send доставляет событие, пока жив контекст приложения.
func (r *Runner) send(ctx context.Context, ev Event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}

// progress не блокирует запись: при переполненном буфере событие теряется.
func (r *Runner) progress(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}

// description - представление ошибки для пользователя.
type description struct {
	Title  string
	Status string
	Dialog string
}

// describeError сопоставляет ошибку стадии с текстами диалога и статуса.
func describeError(err error) description {
	var (
		hwErr      *audio.HardwareError
		svcErr     *speech.ServiceError
		apiErr     *weather.APIError
		timeoutErr *weather.TimeoutError
	)

	switch {
	case errors.As(err, &hwErr):
		return description{
			Title:  "Hardware Error",
			Status: fmt.Sprintf("Recording failed: %v", err),
			Dialog: fmt.Sprintf("Microphone issue: %v", err),
		}
	case errors.Is(err, speech.ErrUnintelligible):
		return description{
			Title:  "Recognition Error",
			Status: "Could not understand audio",
			Dialog: "Could not understand your speech. Please try again.",
		}
	case errors.As(err, &svcErr):
		return description{
			Title:  "Service Error",
			Status: "Speech service unavailable",
			Dialog: fmt.Sprintf("Could not access speech recognition service: %v", err),
		}
	case errors.As(err, &apiErr):
		return description{
			Title:  "API Error",
			Status: "API Error: " + apiErr.Error(),
			Dialog: apiErr.Error(),
		}
	case errors.As(err, &timeoutErr):
		return description{
			Title:  "Network Error",
			Status: "Connection timed out",
			Dialog: "Weather service is not responding. Please try again later.",
		}
	default:
		return description{
			Title:  "Error",
			Status: fmt.Sprintf("Error: %v", err),
			Dialog: fmt.Sprintf("Failed to fetch weather data: %v", err),
		}
	}
}
