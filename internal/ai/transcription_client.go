package ai

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
)

// Transcriber turns an audio or video track into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, fileName string, media io.Reader) (string, error)
}

type TranscriptionClientConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// TranscriptionClient calls a Whisper-style speech-to-text endpoint.
// Like the chat client it is single-shot: one request per call.
type TranscriptionClient struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewTranscriptionClient(config TranscriptionClientConfig) *TranscriptionClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(config.Model) == "" {
		config.Model = "whisper-1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &TranscriptionClient{
		apiKey:     strings.TrimSpace(config.APIKey),
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		model:      config.Model,
		timeout:    config.Timeout,
		httpClient: config.HTTPClient,
	}
}

func (c *TranscriptionClient) Available() bool {
	return c.apiKey != ""
}

func (c *TranscriptionClient) Transcribe(ctx context.Context, fileName string, media io.Reader) (string, error) {
	if !c.Available() {
		return "", ErrOpenAIUnavailable
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, media); err != nil {
		return "", fmt.Errorf("copy media: %w", err)
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(
		timeoutCtx,
		http.MethodPost,
		c.baseURL+"/audio/transcriptions",
		&body,
	)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpRequest.Header.Set("Content-Type", writer.FormDataContentType())

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("transcription timeout: %w", err)
		}
		return "", fmt.Errorf("transcription transport error: %w", err)
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		message := strings.TrimSpace(string(responseBody))
		if len(message) > 700 {
			message = message[:700]
		}
		return "", &providerHTTPError{
			Provider:   "transcription",
			StatusCode: httpResponse.StatusCode,
			Message:    message,
		}
	}

	var raw struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(responseBody, &raw); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return strings.TrimSpace(raw.Text), nil
}
