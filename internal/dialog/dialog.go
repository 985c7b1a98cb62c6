// Package dialog предоставляет нативные диалоги приложения.
package dialog

import (
	"errors"
	"strings"

	"github.com/ncruces/zenity"

	"weathervoice/internal/config"
)

// ErrNoModifiers - пользователь не выбрал ни одного модификатора.
var ErrNoModifiers = errors.New("select at least one modifier")

// SelectHotkey открывает диалог выбора горячей клавиши.
// Возвращает выбранную конфигурацию или ошибку если пользователь отменил.
func SelectHotkey(current config.HotkeyConfig) (config.HotkeyConfig, error) {
	// Шаг 1: Выбор модификаторов
	mods := config.AvailableModifiers()
	modOptions := make([]string, len(mods))
	for i, m := range mods {
		modOptions[i] = ModifierLabel(m)
	}

	currentMods := make([]string, 0, len(current.Modifiers))
	for _, m := range current.Modifiers {
		currentMods = append(currentMods, ModifierLabel(m))
	}

	selectedMods, err := zenity.ListMultiple(
		"Select modifiers:",
		modOptions,
		zenity.Title("Weather hotkey - Modifiers"),
		zenity.DefaultItems(currentMods...),
	)
	if err != nil {
		return current, err // Пользователь отменил
	}

	newMods := ParseModifiers(selectedMods)
	if len(newMods) == 0 {
		return current, ErrNoModifiers
	}

	// Шаг 2: Выбор клавиши
	keys := config.AvailableKeys()
	keyOptions := make([]string, len(keys))
	for i, k := range keys {
		keyOptions[i] = KeyLabel(k)
	}

	selectedKey, err := zenity.List(
		"Select key:",
		keyOptions,
		zenity.Title("Weather hotkey - Key"),
		zenity.DefaultItems(KeyLabel(current.Key)),
	)
	if err != nil {
		return current, err // Пользователь отменил
	}

	newKey, ok := ParseKey(selectedKey)
	if !ok {
		return current, zenity.ErrCanceled
	}

	return config.HotkeyConfig{
		Modifiers: newMods,
		Key:       newKey,
	}, nil
}

// ModifierLabel возвращает подпись модификатора для списка.
func ModifierLabel(m config.Modifier) string {
	switch m {
	case config.ModCtrl:
		return "Ctrl"
	case config.ModShift:
		return "Shift"
	case config.ModAlt:
		return "Alt"
	case config.ModSuper:
		return "Super (Win/Cmd)"
	default:
		return string(m)
	}
}

// ParseModifiers переводит подписи обратно в модификаторы, неизвестные пропускаются.
func ParseModifiers(labels []string) []config.Modifier {
	out := make([]config.Modifier, 0, len(labels))
	for _, l := range labels {
		for _, m := range config.AvailableModifiers() {
			if ModifierLabel(m) == l {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// KeyLabel возвращает подпись клавиши ("Space", "W", "F5").
func KeyLabel(k config.Key) string {
	switch k {
	case config.KeySpace:
		return "Space"
	case config.KeyReturn:
		return "Return"
	case config.KeyTab:
		return "Tab"
	default:
		return strings.ToUpper(string(k))
	}
}

// ParseKey переводит подпись в клавишу.
func ParseKey(label string) (config.Key, bool) {
	for _, k := range config.AvailableKeys() {
		if KeyLabel(k) == label {
			return k, true
		}
	}
	return "", false
}

// IsCanceled сообщает, что пользователь закрыл диалог.
func IsCanceled(err error) bool {
	return errors.Is(err, zenity.ErrCanceled)
}

// ShowInfo показывает информационное сообщение.
func ShowInfo(title, message string) {
	_ = zenity.Info(message, zenity.Title(title), zenity.InfoIcon)
}

// ShowError показывает сообщение об ошибке. Блокирует до закрытия.
func ShowError(title, message string) {
	_ = zenity.Error(message, zenity.Title(title), zenity.ErrorIcon)
}
