package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultGoogleURL      = "https://speech.googleapis.com"
	DefaultGoogleLanguage = "en-US"
)

// GoogleRecognizer реализует Recognizer через Google Cloud Speech-to-Text v1.
type GoogleRecognizer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type googleRequest struct {
	Config struct {
		Encoding     string `json:"encoding"`
		LanguageCode string `json:"languageCode"`
	} `json:"config"`
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type googleResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// NewGoogle создаёт GoogleRecognizer.
func NewGoogle(cfg Config) *GoogleRecognizer {
	u := cfg.URL
	if u == "" {
		u = DefaultGoogleURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &GoogleRecognizer{
		baseURL:    strings.TrimRight(u, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name возвращает название сервиса.
func (g *GoogleRecognizer) Name() string {
	return string(EngineGoogle)
}

// Transcribe отправляет WAV (частота берётся из заголовка) и собирает
// первую альтернативу каждого результата.
func (g *GoogleRecognizer) Transcribe(ctx context.Context, wav []byte, lang string) (string, error) {
	if lang == "" {
		lang = DefaultGoogleLanguage
	}

	var payload googleRequest
	payload.Config.Encoding = "LINEAR16"
	payload.Config.LanguageCode = lang
	payload.Audio.Content = base64.StdEncoding.EncodeToString(wav)

	data, err := json.Marshal(payload)
	if err != nil {
		return "", g.fail(fmt.Errorf("failed to marshal request: %w", err))
	}

	endpoint := g.baseURL + "/v1/speech:recognize?key=" + url.QueryEscape(g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", g.fail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// Не показываем ключ из URL
		if ue, ok := err.(*url.Error); ok {
			err = fmt.Errorf("%s %s: %w", ue.Op, g.baseURL, ue.Err)
		}
		return "", g.fail(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", g.fail(fmt.Errorf("service returned status %d: %s", resp.StatusCode, truncate(msg, 200)))
	}

	var result googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", g.fail(fmt.Errorf("failed to decode response: %w", err))
	}

	parts := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrUnintelligible
	}
	return strings.Join(parts, " "), nil
}

func (g *GoogleRecognizer) fail(err error) error {
	return &ServiceError{Engine: g.Name(), Err: err}
}
