package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yoockh/yoohealth/internal/utils"
)

// HTTPSpeech calls a speech-to-text endpoint that accepts
// {"audio": "<base64>", "mime_type": "...", "language": "..."} and answers
// {"text": "..."} or {"error": "..."}.
type HTTPSpeech struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type httpSpeechRequest struct {
	Audio    string `json:"audio"`
	MimeType string `json:"mime_type,omitempty"`
	Language string `json:"language,omitempty"`
}

type httpSpeechResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

func NewHTTPSpeech(endpoint, apiKey string, timeout time.Duration) (*HTTPSpeech, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, utils.E(utils.CodeConfigMissing, "stt.NewHTTPSpeech", "speech endpoint is not configured", nil)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSpeech{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (h *HTTPSpeech) Name() string { return "http" }

func (h *HTTPSpeech) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func (h *HTTPSpeech) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, float64, error) {
	const op = "HTTPSpeech.Transcribe"

	body, err := json.Marshal(httpSpeechRequest{
		Audio:    base64.StdEncoding.EncodeToString(audio),
		MimeType: mimeType,
		Language: language,
	})
	if err != nil {
		return "", 0, utils.E(utils.CodeInternal, op, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, utils.E(utils.CodeInternal, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", 0, utils.E(utils.CodeTimeout, op, "speech service timed out", err)
		}
		return "", 0, utils.E(utils.CodeUnavailable, op, "speech service unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, utils.E(utils.CodeUnavailable, op, "read response", err)
	}

	var out httpSpeechResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
		return "", 0, utils.E(utils.CodeUnavailable, op, "speech service returned an invalid response", err)
	}

	if resp.StatusCode >= 300 || out.Error != "" {
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, msg)
		if isNotConfigured(msg) {
			return "", 0, utils.E(utils.CodeConfigMissing, op, "speech service is not configured", cause)
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", 0, utils.E(utils.CodeInvalidArgument, op, "speech service rejected the audio", cause)
		}
		return "", 0, utils.E(utils.CodeUnavailable, op, "speech service unavailable", cause)
	}

	return strings.TrimSpace(out.Text), out.Confidence, nil
}

func isNotConfigured(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not configured") || strings.Contains(m, "api key")
}
