package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM - код формата несжатого PCM в заголовке WAVE.
const wavFormatPCM = 1

// ErrEmptyClip возвращается при попытке сохранить пустой фрагмент.
var ErrEmptyClip = errors.New("пустой аудиофрагмент")

// EncodeWAV записывает фрагмент в контейнер RIFF/WAVE (16 бит PCM).
func EncodeWAV(w io.WriteSeeker, clip *Clip) error {
	if clip == nil || len(clip.Samples) == 0 {
		return ErrEmptyClip
	}

	channels := clip.Channels
	if channels == 0 {
		channels = Channels
	}

	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(w, clip.SampleRate, BitDepth, channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  clip.SampleRate,
		},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("запись PCM: %w", err)
	}
	// Close дописывает размеры в заголовок
	if err := enc.Close(); err != nil {
		return fmt.Errorf("финализация WAV: %w", err)
	}
	return nil
}

// SaveWAV сохраняет фрагмент в WAV файл.
func SaveWAV(path string, clip *Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := EncodeWAV(f, clip); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
