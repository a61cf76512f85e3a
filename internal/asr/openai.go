package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

// DefaultURL is a local faster-whisper server speaking the OpenAI API.
const DefaultURL = "http://localhost:8000"

// OpenAIClient calls POST {BaseURL}/v1/audio/transcriptions and asks for
// word timestamps.
type OpenAIClient struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Model      string
	Language   string
}

func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultURL
	}
	return &OpenAIClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Minute},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		Language:   "it",
	}
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string) (model.Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return model.Transcript{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{
		{"model", c.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
		{"timestamp_granularities[]", "segment"},
	}
	if c.Language != "" {
		fields = append(fields, [2]string{"language", c.Language})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return model.Transcript{}, err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return model.Transcript{}, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return model.Transcript{}, err
	}
	if err := mw.Close(); err != nil {
		return model.Transcript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return model.Transcript{}, err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return model.Transcript{}, fmt.Errorf("asr request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return model.Transcript{}, fmt.Errorf("asr http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var raw rawTranscript
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return model.Transcript{}, fmt.Errorf("failed to decode asr response: %w", err)
	}
	return raw.normalize(), nil
}
