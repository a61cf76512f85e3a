// Package grader talks to a local Ollama server that plays the CEFR examiner.
package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/rubric"
)

// DefaultHost is where Ollama listens unless configured otherwise.
const DefaultHost = "http://localhost:11434"

// Client is an Ollama HTTP client. It is built once per session and reused.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Model      string
}

// StatusError is returned for non-2xx Ollama responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama error: status=%d body=%s", e.Code, e.Body)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"models"`
}

var errDecode = errors.New("failed to decode ollama response")

// Grading is a parsed examiner answer together with the raw text.
type Grading struct {
	Rubric rubric.Rubric
	Raw    string
}

func NewClient(baseURL, model string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultHost
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 180 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
	}
}

// Generate sends one non-streaming completion request and returns the text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.Model == "" {
		return "", fmt.Errorf("ollama model missing")
	}
	reqBody, _ := json.Marshal(generateRequest{Model: c.Model, Prompt: prompt, Stream: false})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("%w: %v", errDecode, err)
	}
	return strings.TrimSpace(gr.Response), nil
}

// ListModels returns the model names installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	var tr tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: %v", errDecode, err)
	}
	names := make([]string, 0, len(tr.Models))
	for _, m := range tr.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// SelfTest asks for a tiny rubric without any audio.
func (c *Client) SelfTest(ctx context.Context) (string, error) {
	out, err := c.Generate(ctx, rubric.SelfTestPrompt)
	if err != nil {
		return "", classify(err)
	}
	return out, nil
}

// Grade requests a rubric for the transcript. Every failure is returned as
// a *rubric.GradingError; Raw is kept when the answer could not be parsed.
func (c *Client) Grade(ctx context.Context, transcript string, m model.SpeakingMetrics) (Grading, error) {
	raw, err := c.Generate(ctx, rubric.BuildPrompt(transcript, m))
	if err != nil {
		return Grading{}, classify(err)
	}
	out := rubric.ParseResponse(raw)
	if !out.OK() {
		return Grading{Raw: raw}, &rubric.GradingError{Kind: rubric.KindMalformed, Detail: preview(raw, 200)}
	}
	return Grading{Rubric: out.Rubric, Raw: raw}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// classify maps transport failures onto grading error kinds. A 404 means
// the model is not pulled.
func classify(err error) *rubric.GradingError {
	var se *StatusError
	if errors.As(err, &se) {
		if se.Code == http.StatusNotFound {
			return &rubric.GradingError{Kind: rubric.KindUnavailable, Detail: se.Body}
		}
		return &rubric.GradingError{Kind: rubric.KindHTTP, Detail: se.Error()}
	}
	if errors.Is(err, errDecode) {
		return &rubric.GradingError{Kind: rubric.KindMalformed, Detail: err.Error()}
	}
	return &rubric.GradingError{Kind: rubric.KindUnavailable, Detail: err.Error()}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
