package ffmpeg

import (
	"context"
	"fmt"
	"strings"
)

// NormalizeOptions configures clip normalization.
type NormalizeOptions struct {
	FPS             float64 // Target frame rate (default: 30)
	TargetWidth     int     // Letterbox target; 0 keeps source resolution
	TargetHeight    int     // Letterbox target; 0 keeps source resolution
	AudioSampleRate int     // Default: 48000
	AudioBitrate    string  // Default: "192k"
}

func (o *NormalizeOptions) defaults() {
	if o.FPS == 0 {
		o.FPS = 30
	}
	if o.AudioSampleRate == 0 {
		o.AudioSampleRate = 48000
	}
	if o.AudioBitrate == "" {
		o.AudioBitrate = "192k"
	}
}

// Normalize re-encodes a clip to a consistent frame rate, square pixel
// aspect ratio, and guaranteed audio presence. A clip with no audio stream
// gets a silent track synthesized to its probed duration so that downstream
// acrossfade filters always have a stream to operate on. The source
// resolution is preserved unless the options name a target that differs, in
// which case the clip is letterboxed (aspect-preserving scale + pad).
// Returns the measured duration of the normalized output.
func Normalize(ctx context.Context, input, output string, opts *NormalizeOptions) (float64, error) {
	if opts == nil {
		opts = &NormalizeOptions{}
	}
	opts.defaults()

	info, err := Probe(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("ffmpeg: probe before normalize: %w", err)
	}

	if err := run(ctx, normalizeArgs(input, output, info, opts), nil); err != nil {
		return 0, err
	}

	measured, err := ProbeDuration(ctx, output)
	if err != nil {
		return 0, fmt.Errorf("ffmpeg: probe after normalize: %w", err)
	}
	return measured, nil
}

// normalizeArgs builds the full argument list for normalizing one clip with
// the given probe result. Split from Normalize so the audio and letterbox
// decisions are checkable without executing ffmpeg.
func normalizeArgs(input, output string, info *ProbeResult, opts *NormalizeOptions) []string {
	letterbox := opts.TargetWidth > 0 && opts.TargetHeight > 0 &&
		(info.Width != opts.TargetWidth || info.Height != opts.TargetHeight)

	if info.HasAudio() {
		runOpts := []Option{
			FPS(opts.FPS),
			SetSAR(),
			VideoCodec("libx264"),
			Preset("veryfast"),
			CRF(23),
			PixelFormat("yuv420p"),
			AudioCodec("aac"),
			AudioBitrate(opts.AudioBitrate),
			AudioSampleRate(opts.AudioSampleRate),
			AudioChannels(2),
		}
		if letterbox {
			runOpts = append(runOpts,
				ScaleForceAspect(opts.TargetWidth, opts.TargetHeight),
				PadCenter(opts.TargetWidth, opts.TargetHeight),
			)
		}
		return NewCommand(input, output, runOpts...).Build()
	}

	return silentTrackArgs(input, output, info, opts, letterbox)
}

// silentTrackArgs normalizes a clip that has no audio stream by feeding an
// anullsrc lavfi input cut to the clip's probed duration.
func silentTrackArgs(input, output string, info *ProbeResult, opts *NormalizeOptions, letterbox bool) []string {
	chains := []string{fmt.Sprintf("fps=%g", opts.FPS), "setsar=1"}
	if letterbox {
		chains = append(chains,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", opts.TargetWidth, opts.TargetHeight),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", opts.TargetWidth, opts.TargetHeight),
		)
	}

	silence := fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", opts.AudioSampleRate)

	return NewComplexCommand(output).
		Input(input).
		Input(silence, "-f", "lavfi", "-t", formatSeconds(info.Duration)).
		FilterChain("[0:v]" + strings.Join(chains, ",") + "[v]").
		Map("[v]").
		Map("1:a").
		Args(
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-crf", "23",
			"-pix_fmt", "yuv420p",
			"-c:a", "aac",
			"-b:a", opts.AudioBitrate,
			"-ar", itoa(opts.AudioSampleRate),
			"-shortest",
		).
		Build()
}
