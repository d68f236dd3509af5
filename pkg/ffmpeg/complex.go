package ffmpeg

import (
	"context"
	"path/filepath"
	"strings"
)

// ComplexCommand builds an ffmpeg invocation with multiple inputs and a
// -filter_complex graph. The single-input Command covers the common case;
// transitions and silent-track synthesis need labeled streams across inputs.
type ComplexCommand struct {
	inputs    []string
	inputPre  [][]string // per-input args placed before the matching -i
	graph     []string   // filter_complex chains, joined with ";"
	maps      []string   // -map specs, in order
	postInput []string
	output    string
}

// NewComplexCommand creates a multi-input command producing output.
func NewComplexCommand(output string) *ComplexCommand {
	return &ComplexCommand{output: output}
}

// Input adds an input file. preArgs are placed immediately before its -i
// (e.g. "-f", "lavfi", "-t", "4.0" for a generated source).
func (c *ComplexCommand) Input(path string, preArgs ...string) *ComplexCommand {
	c.inputs = append(c.inputs, path)
	c.inputPre = append(c.inputPre, preArgs)
	return c
}

// FilterChain appends one chain to the filter_complex graph.
func (c *ComplexCommand) FilterChain(chain string) *ComplexCommand {
	c.graph = append(c.graph, chain)
	return c
}

// Map adds a -map spec (a labeled pad like "[v]" or a stream like "1:a:0").
func (c *ComplexCommand) Map(spec string) *ComplexCommand {
	c.maps = append(c.maps, spec)
	return c
}

// Args appends raw output args (codecs, bitrates, -shortest, ...).
func (c *ComplexCommand) Args(args ...string) *ComplexCommand {
	c.postInput = append(c.postInput, args...)
	return c
}

// Build returns the complete ffmpeg argument list.
func (c *ComplexCommand) Build() []string {
	args := []string{"-hide_banner", "-y"}

	for i, input := range c.inputs {
		args = append(args, c.inputPre[i]...)
		args = append(args, "-i", input)
	}

	if len(c.graph) > 0 {
		args = append(args, "-filter_complex", strings.Join(c.graph, ";"))
	}

	for _, m := range c.maps {
		args = append(args, "-map", m)
	}

	args = append(args, c.postInput...)

	ext := strings.ToLower(filepath.Ext(c.output))
	if ext == ".mp4" || ext == ".m4a" || ext == ".mov" {
		args = append(args, "-movflags", "+faststart")
	}

	args = append(args, c.output)

	return args
}

// Run executes the command.
func (c *ComplexCommand) Run(ctx context.Context) error {
	return run(ctx, c.Build(), nil)
}

// RunWithProgress executes with progress reporting.
func (c *ComplexCommand) RunWithProgress(ctx context.Context, progress chan<- Progress) error {
	args := c.Build()
	progressArgs := []string{args[0], args[1], "-progress", "pipe:1", "-nostats"}
	progressArgs = append(progressArgs, args[2:]...)
	return run(ctx, progressArgs, progress)
}
