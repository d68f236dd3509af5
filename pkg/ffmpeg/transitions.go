package ffmpeg

import "fmt"

// xfadeTransitions is the set of xfade transition names we accept. Anything
// else is coerced to "fade" rather than handed to ffmpeg to fail on.
var xfadeTransitions = map[string]bool{
	"fade":       true,
	"fadeblack":  true,
	"fadewhite":  true,
	"dissolve":   true,
	"wipeleft":   true,
	"wiperight":  true,
	"wipeup":     true,
	"wipedown":   true,
	"slideleft":  true,
	"slideright": true,
	"slideup":    true,
	"slidedown":  true,
	"circleopen": true,
	"circlecrop": true,
	"pixelize":   true,
	"radial":     true,
	"hblur":      true,
	"zoomin":     true,
}

// NormalizeTransition maps an arbitrary transition label onto a valid xfade
// name. "none" is preserved (it means hard concatenation, not a filter).
func NormalizeTransition(name string) string {
	if name == "none" {
		return "none"
	}
	if xfadeTransitions[name] {
		return name
	}
	return "fade"
}

// XfadeOffset computes the xfade offset for blending a second clip into a
// first clip of the given measured duration.
func XfadeOffset(firstDuration, overlap float64) float64 {
	offset := firstDuration - overlap
	if offset < 0 {
		return 0
	}
	return offset
}

// TransitionCommand builds the command that crossfades two clips into
// output: xfade on video plus acrossfade with a triangular curve on audio,
// so the audio beds blend across the same window instead of ducking.
// firstDuration must be the measured duration of the first input.
func TransitionCommand(first, second, output, transition string, firstDuration, overlap float64) *ComplexCommand {
	offset := XfadeOffset(firstDuration, overlap)

	videoChain := fmt.Sprintf("[0:v][1:v]xfade=transition=%s:duration=%s:offset=%s[v]",
		NormalizeTransition(transition), formatSeconds(overlap), formatSeconds(offset))
	audioChain := fmt.Sprintf("[0:a][1:a]acrossfade=d=%s:c1=tri:c2=tri[a]",
		formatSeconds(overlap))

	return NewComplexCommand(output).
		Input(first).
		Input(second).
		FilterChain(videoChain).
		FilterChain(audioChain).
		Map("[v]").
		Map("[a]").
		Args(
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-crf", "23",
			"-pix_fmt", "yuv420p",
			"-c:a", "aac",
			"-b:a", "192k",
			"-ar", "48000",
		)
}
