package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/miladpirayegar-hash/scholar/internal/config"
)

const (
	requestTimeout      = 10 * time.Minute
	insightsTemperature = 0.2
	transcriptionPath   = "/audio/transcriptions"
	chatCompletionsPath = "/chat/completions"
)

var allowedAudioMIMEs = map[string]struct{}{
	"audio/webm":  {},
	"audio/mpeg":  {},
	"audio/mp4":   {},
	"audio/x-m4a": {},
	"audio/wav":   {},
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIService issues single, non-retried requests to the transcription
// and chat-completion endpoints.
type OpenAIService struct {
	apiKey          string
	baseURL         string
	transcribeModel string
	insightsModel   string
	httpClient      *http.Client
}

func NewOpenAIService(cfg config.Config) *OpenAIService {
	return &OpenAIService{
		apiKey:          cfg.OpenAIAPIKey,
		baseURL:         strings.TrimSuffix(cfg.OpenAIBaseURL, "/"),
		transcribeModel: cfg.OpenAIModelTranscribe,
		insightsModel:   cfg.OpenAIModelInsights,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Transcribe sends one audio stream to the speech-to-text endpoint and
// returns the trimmed plain-text transcript.
func (s *OpenAIService) Transcribe(ctx context.Context, r io.Reader, filename, mimeType string) (string, error) {
	if err := s.ensureAPIKey(); err != nil {
		return "", err
	}

	if mimeType != "" {
		if _, ok := allowedAudioMIMEs[strings.ToLower(mimeType)]; !ok {
			return "", &ProviderError{Op: "transcription", Err: fmt.Errorf("unsupported audio mime type: %s", mimeType)}
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}
	if err := writer.WriteField("model", s.transcribeModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return "", fmt.Errorf("write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+transcriptionPath, body)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.do(req)
	if err != nil {
		return "", &ProviderError{Op: "transcription", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &ProviderError{Op: "transcription", Err: s.decodeAPIError(resp)}
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}

	return strings.TrimSpace(string(text)), nil
}

// Complete sends one system+user message pair to the chat-completion
// endpoint at a fixed low temperature, without streaming, and returns the
// raw generated text.
func (s *OpenAIService) Complete(ctx context.Context, system, user string) (string, error) {
	if err := s.ensureAPIKey(); err != nil {
		return "", err
	}

	payload := completionRequest{
		Model: s.insightsModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: insightsTemperature,
		Stream:      false,
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+chatCompletionsPath, buf)
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return "", &ProviderError{Op: "completion", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &ProviderError{Op: "completion", Err: s.decodeAPIError(resp)}
	}

	var response completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", &ProviderError{Op: "completion", Err: errors.New("no choices returned")}
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func (s *OpenAIService) do(req *http.Request) (*http.Response, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	return resp, nil
}

func (s *OpenAIService) decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("openai api error: status %d type %s message %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
	}

	return fmt.Errorf("openai api error: status %d body %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func (s *OpenAIService) ensureAPIKey() error {
	if strings.TrimSpace(s.apiKey) == "" {
		return &ConfigurationError{Msg: "openai api key is not configured"}
	}
	return nil
}
