package ffmpeg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBuild(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		output   string
		opts     []Option
		wantArgs []string
	}{
		{
			name:   "simple copy",
			input:  "input.mkv",
			output: "output.mp4",
			opts:   []Option{CopyAll},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mkv",
				"-c", "copy",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "h264 encoding",
			input:  "input.mp4",
			output: "output.mp4",
			opts: []Option{
				VideoCodec("libx264"),
				CRF(23),
				Preset("veryfast"),
				PixelFormat("yuv420p"),
				AudioCodec("aac"),
				AudioBitrate("192k"),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-c:v", "libx264",
				"-crf", "23",
				"-preset", "veryfast",
				"-pix_fmt", "yuv420p",
				"-c:a", "aac",
				"-b:a", "192k",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "fps and sar filters combine into one -vf",
			input:  "input.mp4",
			output: "output.mp4",
			opts: []Option{
				FPS(30),
				SetSAR(),
				VideoCodec("libx264"),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-c:v", "libx264",
				"-vf", "fps=30,setsar=1",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "letterbox scale and pad",
			input:  "input.mp4",
			output: "output.mp4",
			opts: []Option{
				ScaleForceAspect(1080, 1920),
				PadCenter(1080, 1920),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-vf", "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "no faststart for webm",
			input:  "input.mp4",
			output: "output.webm",
			opts:   []Option{VideoCodec("libvpx-vp9")},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-c:v", "libvpx-vp9",
				"output.webm",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := NewCommand(tt.input, tt.output, tt.opts...).Build()
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestComplexCommandBuild(t *testing.T) {
	args := NewComplexCommand("out.mp4").
		Input("a.mp4").
		Input("anullsrc=channel_layout=stereo:sample_rate=48000", "-f", "lavfi", "-t", "4.000").
		FilterChain("[0:v]fps=30,setsar=1[v]").
		Map("[v]").
		Map("1:a").
		Args("-c:v", "libx264", "-shortest").
		Build()

	assert.Equal(t, []string{
		"-hide_banner", "-y",
		"-i", "a.mp4",
		"-f", "lavfi", "-t", "4.000",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=48000",
		"-filter_complex", "[0:v]fps=30,setsar=1[v]",
		"-map", "[v]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-shortest",
		"-movflags", "+faststart",
		"out.mp4",
	}, args)
}

func TestTransitionCommand(t *testing.T) {
	args := TransitionCommand("a.mp4", "b.mp4", "out.mp4", "fade", 5.0, 0.5).Build()

	// Offset is first clip duration minus overlap.
	assert.Contains(t, args, "-filter_complex")
	var graph string
	for i, a := range args {
		if a == "-filter_complex" {
			graph = args[i+1]
		}
	}
	assert.Contains(t, graph, "xfade=transition=fade:duration=0.500:offset=4.500")
	assert.Contains(t, graph, "acrossfade=d=0.500:c1=tri:c2=tri")
}

func TestXfadeOffset(t *testing.T) {
	assert.InDelta(t, 4.5, XfadeOffset(5.0, 0.5), 1e-9)
	// Never negative for clips shorter than the overlap.
	assert.Equal(t, 0.0, XfadeOffset(0.2, 0.5))
}

func TestNormalizeTransition(t *testing.T) {
	assert.Equal(t, "none", NormalizeTransition("none"))
	assert.Equal(t, "wipeleft", NormalizeTransition("wipeleft"))
	assert.Equal(t, "fade", NormalizeTransition("sparkle-burst"))
	assert.Equal(t, "fade", NormalizeTransition(""))
}

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "list.txt")

	err := WriteConcatList(listPath, []string{"/tmp/a.mp4", "/tmp/it's.mp4"})
	require.NoError(t, err)

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	assert.Equal(t, "file '/tmp/a.mp4'\nfile '/tmp/it'\\''s.mp4'\n", string(data))
}

func TestProgressParser(t *testing.T) {
	parser := NewProgressParser()

	lines := []string{
		"frame=120",
		"fps=59.8",
		"out_time_us=4000000",
		"speed=2.5x",
		"progress=continue",
	}

	var complete bool
	for _, line := range lines {
		complete = parser.ParseLine(line)
	}

	require.True(t, complete)
	p := parser.Current()
	assert.Equal(t, int64(120), p.Frame)
	assert.InDelta(t, 4.0, p.OutTimeSeconds(), 1e-9)
	assert.Equal(t, "continue", p.Progress)
}

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 30.0, parseFrameRate("30/1"))
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 0.001)
	assert.Equal(t, 0.0, parseFrameRate("garbage"))
}
