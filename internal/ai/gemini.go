package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/adreel/adreel/internal/config"
	"github.com/adreel/adreel/internal/usage"
)

// Polling budget for long-running video operations: 60 attempts at
// 10-second intervals, roughly ten minutes.
const (
	videoPollInterval    = 10 * time.Second
	videoPollMaxAttempts = 60
)

// GeminiClient implements Client against the Gemini API: the genai SDK for
// text and image, and the REST long-running surface for image-to-video.
type GeminiClient struct {
	sdk     *genai.Client
	httpc   *http.Client
	counter *usage.Counter

	apiKey     string
	textModel  string
	imageModel string
	videoModel string
	baseURL    string

	pollInterval time.Duration
	maxAttempts  int
}

// NewGeminiClient builds the provider client from configuration.
func NewGeminiClient(ctx context.Context, cfg config.Config, counter *usage.Counter) (*GeminiClient, error) {
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("ai: create gemini client: %w", err)
	}

	return &GeminiClient{
		sdk:          sdk,
		httpc:        &http.Client{Timeout: 2 * time.Minute},
		counter:      counter,
		apiKey:       cfg.GeminiAPIKey,
		textModel:    cfg.TextModel,
		imageModel:   cfg.ImageModel,
		videoModel:   cfg.VideoModel,
		baseURL:      strings.TrimSuffix(cfg.VideoAPIBaseURL, "/"),
		pollInterval: videoPollInterval,
		maxAttempts:  videoPollMaxAttempts,
	}, nil
}

// Close releases the underlying SDK connection.
func (c *GeminiClient) Close() error {
	return c.sdk.Close()
}

func (c *GeminiClient) GenerateText(ctx context.Context, prompt, systemPrompt string) (string, error) {
	start := time.Now()

	model := c.sdk.GenerativeModel(c.textModel)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.counter.Record(usage.KindText, c.textModel, false, time.Since(start))
		return "", fmt.Errorf("ai: generate text: %w", err)
	}

	text := collectText(resp)
	if text == "" {
		c.counter.Record(usage.KindText, c.textModel, false, time.Since(start))
		return "", ErrEmptyResponse
	}

	c.counter.Record(usage.KindText, c.textModel, true, time.Since(start))
	return text, nil
}

func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string, refs []ImageRef) (*ImagePayload, error) {
	start := time.Now()

	model := c.sdk.GenerativeModel(c.imageModel)

	parts := make([]genai.Part, 0, len(refs)+1)
	parts = append(parts, genai.Text(prompt))
	for _, ref := range refs {
		parts = append(parts, genai.Blob{MIMEType: ref.MimeType, Data: ref.Bytes})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		c.counter.Record(usage.KindImage, c.imageModel, false, time.Since(start))
		return nil, fmt.Errorf("ai: generate image: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				c.counter.Record(usage.KindImage, c.imageModel, true, time.Since(start))
				return &ImagePayload{Bytes: blob.Data, MimeType: blob.MIMEType}, nil
			}
		}
	}

	c.counter.Record(usage.KindImage, c.imageModel, false, time.Since(start))
	return nil, ErrEmptyResponse
}

// --- long-running video generation (REST) ---

type videoOperationRequest struct {
	Instances []videoInstance `json:"instances"`
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *videoImage `json:"image,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

func (c *GeminiClient) GenerateVideoFromImage(ctx context.Context, image []byte, mimeType, prompt string, onProgress ProgressFunc) ([]byte, error) {
	start := time.Now()

	opName, err := c.startVideoOperation(ctx, image, mimeType, prompt)
	if err != nil {
		c.counter.Record(usage.KindVideo, c.videoModel, false, time.Since(start))
		return nil, err
	}

	slog.Info("video operation started", "operation", opName, "model", c.videoModel)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			c.counter.Record(usage.KindVideo, c.videoModel, false, time.Since(start))
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		if onProgress != nil {
			onProgress(attempt*100/c.maxAttempts,
				fmt.Sprintf("waiting for video generation (attempt %d/%d)", attempt, c.maxAttempts))
		}

		op, err := c.pollVideoOperation(ctx, opName)
		if err != nil {
			// A single failed poll is not terminal; the operation may
			// still be running server-side.
			slog.Warn("video operation poll failed", "operation", opName, "attempt", attempt, "error", err)
			continue
		}

		if !op.Done {
			continue
		}

		if op.Error != nil {
			c.counter.Record(usage.KindVideo, c.videoModel, false, time.Since(start))
			return nil, fmt.Errorf("ai: video generation failed: %s", op.Error.Message)
		}

		uri := videoURI(op)
		if uri == "" {
			c.counter.Record(usage.KindVideo, c.videoModel, false, time.Since(start))
			return nil, ErrEmptyResponse
		}

		data, err := c.downloadVideo(ctx, uri)
		if err != nil {
			c.counter.Record(usage.KindVideo, c.videoModel, false, time.Since(start))
			return nil, err
		}

		c.counter.Record(usage.KindVideo, c.videoModel, true, time.Since(start))
		return data, nil
	}

	c.counter.Record(usage.KindVideo, c.videoModel, false, time.Since(start))
	return nil, ErrTimeout
}

func (c *GeminiClient) startVideoOperation(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	reqBody := videoOperationRequest{
		Instances: []videoInstance{{
			Prompt: prompt,
			Image: &videoImage{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(image),
				MimeType:           mimeType,
			},
		}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("ai: marshal video request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, c.videoModel)
	var op videoOperation
	if err := c.doJSON(ctx, http.MethodPost, url, body, &op); err != nil {
		return "", fmt.Errorf("ai: start video operation: %w", err)
	}
	if op.Name == "" {
		return "", ErrEmptyResponse
	}
	return op.Name, nil
}

func (c *GeminiClient) pollVideoOperation(ctx context.Context, name string) (*videoOperation, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, name)
	var op videoOperation
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

func (c *GeminiClient) downloadVideo(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("ai: download video: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai: download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai: download video: unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *GeminiClient) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func videoURI(op *videoOperation) string {
	if op.Response == nil {
		return ""
	}
	samples := op.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 {
		return ""
	}
	return samples[0].Video.URI
}

func collectText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
