package creative

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/adreel/adreel/internal/ai"
	"github.com/adreel/adreel/internal/models"
)

const candidateCount = 4

// Placeholder candidates used when every generation call fails. The stage
// still returns exactly four entries.
var characterPlaceholders = []string{
	"https://placehold.co/1024x1024/png?text=Character+1",
	"https://placehold.co/1024x1024/png?text=Character+2",
	"https://placehold.co/1024x1024/png?text=Character+3",
	"https://placehold.co/1024x1024/png?text=Character+4",
}

var productShotPlaceholders = []string{
	"https://placehold.co/1024x1024/png?text=Product+Shot+1",
	"https://placehold.co/1024x1024/png?text=Product+Shot+2",
	"https://placehold.co/1024x1024/png?text=Product+Shot+3",
	"https://placehold.co/1024x1024/png?text=Product+Shot+4",
}

var characterModifiers = [candidateCount]string{
	"natural smile, facing camera, studio lighting",
	"three-quarter profile, candid laugh, warm daylight",
	"arms crossed, confident expression, urban backdrop",
	"mid-gesture while talking, soft indoor lighting",
}

var productShotStyles = [candidateCount]string{
	"holding the product up to the camera with an excited expression",
	"using the product naturally in a lifestyle setting",
	"presenting the product on an open palm, product in sharp focus",
	"reacting with delight while the product sits on a table in front of them",
}

func characterPrompts(description string) [candidateCount]string {
	var prompts [candidateCount]string
	for i, modifier := range characterModifiers {
		prompts[i] = fmt.Sprintf("Photorealistic portrait of %s. %s. Vertical 9:16 framing.",
			description, modifier)
	}
	return prompts
}

func productShotPrompts(productName string) [candidateCount]string {
	var prompts [candidateCount]string
	for i, style := range productShotStyles {
		prompts[i] = fmt.Sprintf("The person from the first reference image %s. The product is %s, shown in the second reference image. Photorealistic, vertical 9:16 framing.",
			style, productName)
	}
	return prompts
}

func sceneImagePrompt(visuals string) string {
	return fmt.Sprintf("Using the reference image for character and product consistency: %s. Photorealistic, vertical 9:16 framing.", visuals)
}

// generateCandidates issues four parallel image generations and uploads
// each success. If every call fails it returns the four fixed placeholders;
// it never returns an empty list and never an error.
func (s *Service) generateCandidates(ctx context.Context, prompts [candidateCount]string, refs []ai.ImageRef, namePrefix string, placeholders []string) []models.Candidate {
	urls := make([]string, candidateCount)
	var mu sync.Mutex
	succeeded := 0

	g, gctx := errgroup.WithContext(ctx)
	for i := range prompts {
		g.Go(func() error {
			payload, err := s.gen.GenerateImage(gctx, prompts[i], refs)
			if err != nil {
				slog.Warn("candidate generation failed", "index", i, "error", err)
				return nil // degrade per-candidate, not per-stage
			}

			name := fmt.Sprintf("%s/%d-%s%s", namePrefix, i, uuid.NewString()[:8], extensionFor(payload.MimeType))
			url := s.blobs.Put(gctx, payload.Bytes, name, payload.MimeType)

			mu.Lock()
			urls[i] = url
			succeeded++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	if succeeded == 0 {
		slog.Warn("all candidate generations failed, falling back to placeholders", "prefix", namePrefix)
		candidates := make([]models.Candidate, candidateCount)
		for i, url := range placeholders {
			candidates[i] = models.Candidate{ID: i + 1, URL: url}
		}
		return candidates
	}

	// Fill the gaps left by individual failures with placeholders so the
	// caller always sees four options.
	candidates := make([]models.Candidate, 0, candidateCount)
	for i, url := range urls {
		if url == "" {
			url = placeholders[i]
		}
		candidates = append(candidates, models.Candidate{ID: i + 1, URL: url})
	}
	return candidates
}

// characterDescription resolves the description used for character
// generation: the explicit character prompt when present, otherwise the
// customer avatar from the generated script.
func characterDescription(session *models.Session) string {
	if session.Script == nil {
		return ""
	}
	if session.Script.CharacterPrompt != "" {
		return session.Script.CharacterPrompt
	}
	return session.Script.AdScript.CustomerAvatar
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
