package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	DefaultOpenAIURL   = "https://api.openai.com"
	DefaultOpenAIModel = "whisper-1"
)

// OpenAIRecognizer реализует Recognizer через OpenAI-совместимый API.
type OpenAIRecognizer struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// transcriptionResponse ответ при response_format=json.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewOpenAI создаёт OpenAIRecognizer.
func NewOpenAI(cfg Config) *OpenAIRecognizer {
	url := cfg.URL
	if url == "" {
		url = DefaultOpenAIURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &OpenAIRecognizer{
		baseURL:    strings.TrimRight(url, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name возвращает название сервиса.
func (o *OpenAIRecognizer) Name() string {
	return string(EngineOpenAI)
}

// Transcribe отправляет WAV как multipart и возвращает текст.
func (o *OpenAIRecognizer) Transcribe(ctx context.Context, wav []byte, lang string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "voice_input.wav")
	if err != nil {
		return "", o.fail(err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", o.fail(err)
	}

	fields := map[string]string{
		"model":           o.model,
		"response_format": "json",
	}
	// API ожидает ISO-639-1: "en-US" -> "en"
	if code, _, _ := strings.Cut(lang, "-"); code != "" {
		fields["language"] = strings.ToLower(code)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", o.fail(err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", o.fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", o.fail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", o.fail(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", o.fail(fmt.Errorf("service returned status %d: %s", resp.StatusCode, truncate(msg, 200)))
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", o.fail(fmt.Errorf("failed to decode response: %w", err))
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrUnintelligible
	}
	return text, nil
}

func (o *OpenAIRecognizer) fail(err error) error {
	return &ServiceError{Engine: o.Name(), Err: err}
}
