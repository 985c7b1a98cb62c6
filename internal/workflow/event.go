package workflow

import "weathervoice/internal/audio"

// State - стадия прогона.
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateRecognizing
	StateFetchingWeather
	StateDisplaying
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateRecognizing:
		return "recognizing"
	case StateFetchingWeather:
		return "fetching_weather"
	case StateDisplaying:
		return "displaying"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EventKind - тип события.
type EventKind int

const (
	// EventStatus - смена статусной строки.
	EventStatus EventKind = iota
	// EventProgress - уровень сигнала во время записи.
	EventProgress
	// EventReport - готовая сводка в Event.Result.
	EventReport
	// EventError - ошибка прогона, Title и Dialog для диалога.
	EventError
	// EventIdle - прогон завершён, триггер снова доступен.
	EventIdle
)

// Severity определяет цвет статусной строки.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityProgress
	SeveritySuccess
	SeverityError
)

// Event - сообщение от рабочей горутины к UI.
type Event struct {
	RunID    string
	Kind     EventKind
	State    State
	Severity Severity
	Message  string

	// Распознанный запрос (после стадии Recognizing)
	Query string

	// Только для EventError
	Title  string
	Dialog string
	Err    error

	// Только для EventProgress
	Level audio.Level

	// Только для EventReport
	Result *Result
}
