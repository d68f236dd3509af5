package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EscapeConcatPath escapes a path for an ffmpeg concat-demuxer list file.
// The demuxer uses single-quoted strings; embedded quotes become '\''.
func EscapeConcatPath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// WriteConcatList writes a concat-demuxer list file referencing inputs.
func WriteConcatList(listPath string, inputs []string) error {
	var b strings.Builder
	for _, input := range inputs {
		b.WriteString("file ")
		b.WriteString(EscapeConcatPath(input))
		b.WriteString("\n")
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("ffmpeg: failed to write concat list: %w", err)
	}
	return nil
}

// ConcatFiles concatenates inputs into output with the concat demuxer and
// stream copy. Inputs must share codec parameters (normalize them first).
// The list file is written next to the output and removed afterwards.
func ConcatFiles(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("ffmpeg: concat needs at least one input")
	}

	listPath := output + ".concat.txt"
	if err := WriteConcatList(listPath, inputs); err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{
		"-hide_banner", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
	}
	if strings.HasSuffix(strings.ToLower(output), ".mp4") {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, output)

	return run(ctx, args, nil)
}
