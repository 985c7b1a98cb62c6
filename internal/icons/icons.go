// Package icons рисует иконки трея.
package icons

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// Size - сторона иконки в пикселях.
const Size = 64

// Kind - состояние, отображаемое иконкой.
type Kind int

const (
	Idle Kind = iota
	Recording
	Working
	Failed
)

var colors = map[Kind]color.RGBA{
	Idle:      {128, 128, 128, 255}, // Серый
	Recording: {217, 48, 37, 255},   // Красный
	Working:   {26, 115, 232, 255},  // Синий
	Failed:    {230, 160, 50, 255},  // Оранжевый
}

var cache = map[Kind]func() []byte{
	Idle:      sync.OnceValue(func() []byte { return encode(Idle) }),
	Recording: sync.OnceValue(func() []byte { return encode(Recording) }),
	Working:   sync.OnceValue(func() []byte { return encode(Working) }),
	Failed:    sync.OnceValue(func() []byte { return encode(Failed) }),
}

// PNG возвращает иконку в формате PNG. Результат кэшируется.
func PNG(k Kind) []byte {
	if fn, ok := cache[k]; ok {
		return fn()
	}
	return PNG(Idle)
}

func encode(k Kind) []byte {
	var buf bytes.Buffer
	// Запись в bytes.Buffer не возвращает ошибок
	_ = png.Encode(&buf, Render(colors[k]))
	return buf.Bytes()
}

// Render рисует микрофон упрощённо: круг и ножка.
func Render(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))

	centerX, centerY := Size/2, Size/2-4
	radius := 20.0

	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			dx := float64(x - centerX)
			dy := float64(y - centerY)
			if dx*dx+dy*dy <= radius*radius {
				img.SetRGBA(x, y, c)
			}
		}
	}

	for y := centerY + int(radius); y < centerY+int(radius)+10 && y < Size; y++ {
		for x := centerX - 3; x <= centerX+3; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
