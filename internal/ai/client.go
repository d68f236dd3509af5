// Package ai wraps the external multimodal provider behind a capability
// interface: single-turn text, reference-conditioned image synthesis, and
// polled long-running image-to-video generation.
package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the provider answered without a usable
// payload (no text, no image bytes, no video).
var ErrEmptyResponse = errors.New("ai: provider returned no usable payload")

// ErrTimeout is returned when a long-running video operation exceeded the
// polling budget.
var ErrTimeout = errors.New("ai: video generation timed out")

// ImageRef is a reference image conditioning a generation call.
type ImageRef struct {
	Bytes    []byte
	MimeType string
}

// ImagePayload is a generated image.
type ImagePayload struct {
	Bytes    []byte
	MimeType string
}

// ProgressFunc is invoked at each poll tick of a long-running operation
// with a coarse 0-100 percentage and a human-readable message.
type ProgressFunc func(percent int, message string)

// Client is the generative capability the pipeline consumes.
type Client interface {
	// GenerateText runs a single-turn completion.
	GenerateText(ctx context.Context, prompt, systemPrompt string) (string, error)

	// GenerateImage synthesizes an image, optionally conditioned on up to
	// two reference images (character, product).
	GenerateImage(ctx context.Context, prompt string, refs []ImageRef) (*ImagePayload, error)

	// GenerateVideoFromImage starts an image-to-video operation and polls
	// it to completion, invoking onProgress at every tick. Returns
	// ErrTimeout once the polling budget is exhausted.
	GenerateVideoFromImage(ctx context.Context, image []byte, mimeType, prompt string, onProgress ProgressFunc) ([]byte, error)
}
