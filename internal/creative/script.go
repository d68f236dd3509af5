package creative

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adreel/adreel/internal/models"
)

const scriptSystemPrompt = `You are a direct-response advertising copywriter.
Respond with a single JSON object and nothing else.`

const sceneCount = 5

// generateScript asks the provider for a structured ad script and parses
// it. Any generation or parsing failure degrades to the deterministic
// template script; this stage never fails.
func (s *Service) generateScript(ctx context.Context, product *models.Product, demo models.TargetDemographic) *models.ScriptBundle {
	prompt := scriptPrompt(product, demo)

	raw, err := s.gen.GenerateText(ctx, prompt, scriptSystemPrompt)
	if err != nil {
		slog.Warn("script generation failed, using template script",
			"product", product.Name, "error", err)
		return fallbackScript(product, demo)
	}

	script, err := parseScript(raw)
	if err != nil {
		slog.Warn("script parsing failed, using template script",
			"product", product.Name, "error", err)
		return fallbackScript(product, demo)
	}

	script.ProductPrompt = prompt
	return script
}

func scriptPrompt(product *models.Product, demo models.TargetDemographic) string {
	return fmt.Sprintf(`Write a short-form video ad script for this product.

Product: %s
Description: %s

Target audience: %s, %s, interested in %s. Tone: %s.

Return JSON with this shape:
{
  "customerAvatar": "one-paragraph description of the ideal customer",
  "productBreakdown": "three-sentence benefits breakdown",
  "characterPrompt": "visual description of the on-screen presenter",
  "scenes": [
    {"id": 1, "section": "Hook", "visuals": "...", "dialogue": "...",
     "cameraMotion": "...", "transition": "fade", "duration": 4}
  ]
}
Produce exactly %d scenes: Hook, Problem, Solution, Proof, Call to action.`,
		product.Name, product.Description,
		demo.AgeBand, demo.Gender, strings.Join(demo.Interests, ", "), demo.Tone,
		sceneCount)
}

// scriptPayload is the JSON shape requested from the provider.
type scriptPayload struct {
	CustomerAvatar   string         `json:"customerAvatar"`
	ProductBreakdown string         `json:"productBreakdown"`
	CharacterPrompt  string         `json:"characterPrompt"`
	Scenes           []models.Scene `json:"scenes"`
}

func parseScript(raw string) (*models.ScriptBundle, error) {
	// Models routinely wrap JSON in a fenced code block.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var payload scriptPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parse script json: %w", err)
	}
	if len(payload.Scenes) == 0 {
		return nil, fmt.Errorf("script has no scenes")
	}

	// Scene ids are 1-based and canonical for stitch ordering; renumber
	// whatever the model returned.
	for i := range payload.Scenes {
		payload.Scenes[i].ID = i + 1
		if payload.Scenes[i].Duration <= 0 {
			payload.Scenes[i].Duration = 4
		}
	}

	var sceneScript strings.Builder
	for _, scene := range payload.Scenes {
		fmt.Fprintf(&sceneScript, "%d. %s: %s\n", scene.ID, scene.Section, scene.Dialogue)
	}

	return &models.ScriptBundle{
		ProductBreakdown: payload.ProductBreakdown,
		CharacterPrompt:  payload.CharacterPrompt,
		SceneScript:      sceneScript.String(),
		AdScript: models.AdScript{
			CustomerAvatar: payload.CustomerAvatar,
			Scenes:         payload.Scenes,
		},
	}, nil
}

// fallbackScript is the deterministic template used when generation is
// unavailable. Same shape, no provider involvement.
func fallbackScript(product *models.Product, demo models.TargetDemographic) *models.ScriptBundle {
	audience := demo.AgeBand
	if audience == "" {
		audience = "your audience"
	}

	sections := []struct {
		section  string
		visuals  string
		dialogue string
		motion   string
	}{
		{"Hook", fmt.Sprintf("Presenter holds up %s, surprised expression, bright background", product.Name),
			fmt.Sprintf("Stop scrolling - this changed everything for %s.", audience), "slow push-in"},
		{"Problem", "Presenter looks frustrated, muted colors, cluttered desk",
			"You've tried everything and nothing sticks.", "handheld sway"},
		{"Solution", fmt.Sprintf("Close-up of %s in use, clean lighting", product.Name),
			fmt.Sprintf("%s does the hard part for you.", product.Name), "orbit left"},
		{"Proof", "Presenter smiling, showing results to camera",
			"Here's what happened after one week.", "static"},
		{"Call to action", fmt.Sprintf("%s centered on a bold background with text overlay", product.Name),
			"Tap the link before the deal ends.", "slow zoom-out"},
	}

	scenes := make([]models.Scene, 0, len(sections))
	for i, sec := range sections {
		transition := "fade"
		if i == len(sections)-1 {
			transition = "none"
		}
		scenes = append(scenes, models.Scene{
			ID:           i + 1,
			Section:      sec.section,
			Visuals:      sec.visuals,
			Dialogue:     sec.dialogue,
			CameraMotion: sec.motion,
			Transition:   transition,
			Duration:     4,
		})
	}

	var sceneScript strings.Builder
	for _, scene := range scenes {
		fmt.Fprintf(&sceneScript, "%d. %s: %s\n", scene.ID, scene.Section, scene.Dialogue)
	}

	return &models.ScriptBundle{
		ProductBreakdown: fmt.Sprintf("%s. %s", product.Name, product.Description),
		CharacterPrompt: fmt.Sprintf("A friendly, relatable presenter who appeals to %s %s shoppers",
			demo.Tone, audience),
		SceneScript: sceneScript.String(),
		AdScript: models.AdScript{
			CustomerAvatar: fmt.Sprintf("A %s shopper in the %s age band interested in %s",
				demo.Gender, audience, strings.Join(demo.Interests, ", ")),
			Scenes: scenes,
		},
	}
}
