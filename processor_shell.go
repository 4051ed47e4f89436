package magicktiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/alessio/shellescape"
	shellwords "github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

// ShellProcessor implements ImageProcessor by shelling out to GraphicsMagick
// (gm) or ImageMagick (convert/identify). It never decodes or re-encodes a
// pixel itself; every operation below composes a command line and lets the
// external tool do the raster work.
type ShellProcessor struct {
	opts   ImageProcessorOptions
	logger *zap.Logger
}

// NewShellProcessor builds a ShellProcessor. A nil logger falls back to
// zap.NewNop(), matching how the rest of the package treats an unconfigured
// logger.
func NewShellProcessor(logger *zap.Logger, options ...ImageProcessorOption) *ShellProcessor {
	opts := defaultImageProcessorOptions()
	for _, opt := range options {
		opt(&opts)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShellProcessor{opts: opts, logger: logger}
}

func (p *ShellProcessor) gmPrefix() []string {
	if p.opts.System == SystemGraphicsMagick {
		return []string{"gm", "convert"}
	}
	return []string{"convert"}
}

func (p *ShellProcessor) identifyCmd() []string {
	if p.opts.System == SystemGraphicsMagick {
		return []string{"gm", "identify"}
	}
	return []string{"identify"}
}

func (p *ShellProcessor) montageCmd() []string {
	if p.opts.System == SystemGraphicsMagick {
		return []string{"gm", "montage"}
	}
	return []string{"montage"}
}

func (p *ShellProcessor) run(ctx context.Context, op string, argv []string) error {
	p.logger.Debug("exec", zap.String("op", op), zap.String("command", shellescape.QuoteCommand(argv)))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return imageProcessingErrorf(op, &ImageProcessingError{Command: argv, Stderr: stderr.String(), Err: err})
	}
	return nil
}

func (p *ShellProcessor) jpegQualityArgs() []string {
	if p.opts.Format == FormatJPEG && p.opts.JPEGQuality > 0 {
		return []string{"-quality", strconv.Itoa(p.opts.JPEGQuality)}
	}
	return nil
}

// Resize implements ImageProcessor.
func (p *ShellProcessor) Resize(src, dst string, width, height int, exact bool) error {
	geometry := fmt.Sprintf("%dx%d", width, height)
	if exact {
		geometry += "!"
	}
	argv := append(p.gmPrefix(), src, "-resize", geometry)
	argv = append(argv, p.jpegQualityArgs()...)
	argv = append(argv, dst)
	return p.run(context.Background(), "resize", argv)
}

// Crop implements ImageProcessor.
func (p *ShellProcessor) Crop(src string, dstPattern func(index int) string, width, height int) error {
	w, h, err := p.Identify(src)
	if err != nil {
		return err
	}
	cols := ceilDiv(w, width)
	rows := ceilDiv(h, height)
	index := 0
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			geometry := fmt.Sprintf("%dx%d+%d+%d", width, height, col*width, row*height)
			argv := append(p.gmPrefix(), "-crop", geometry, "+repage", src)
			argv = append(argv, p.jpegQualityArgs()...)
			argv = append(argv, dstPattern(index))
			if err := p.run(context.Background(), "crop", argv); err != nil {
				return err
			}
			index++
		}
	}
	return nil
}

// Montage implements ImageProcessor.
func (p *ShellProcessor) Montage(srcs []string, dst string, xTiles, yTiles, cellWidth, cellHeight int, background, gravity string) error {
	if background == "" {
		background = p.opts.BackgroundColor
	}
	if gravity == "" {
		gravity = "Center"
	}
	argv := p.montageCmd()
	argv = append(argv, srcs...)
	argv = append(argv,
		"-tile", fmt.Sprintf("%dx%d", xTiles, yTiles),
		"-geometry", fmt.Sprintf("%dx%d+0+0", cellWidth, cellHeight),
		"-gravity", gravity,
		"-background", background,
		"-borderwidth", "0",
	)
	argv = append(argv, p.jpegQualityArgs()...)
	argv = append(argv, dst)
	return p.run(context.Background(), "montage", argv)
}

// Convert implements ImageProcessor.
func (p *ShellProcessor) Convert(src, dst string, rawArgs []string) error {
	argv := p.gmPrefix()
	argv = append(argv, src)
	argv = append(argv, rawArgs...)
	argv = append(argv, p.jpegQualityArgs()...)
	argv = append(argv, dst)
	return p.run(context.Background(), "convert", argv)
}

// Identify implements ImageProcessor.
func (p *ShellProcessor) Identify(src string) (int, int, error) {
	argv := append(p.identifyCmd(), "-format", "%w %h", src)
	p.logger.Debug("exec", zap.String("op", "identify"), zap.String("command", shellescape.QuoteCommand(argv)))
	cmd := exec.Command(argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, 0, imageProcessingErrorf("identify", &ImageProcessingError{Command: argv, Stderr: stderr.String(), Err: err})
	}
	var w, h int
	if _, err := fmt.Sscanf(stdout.String(), "%d %d", &w, &h); err != nil {
		return 0, 0, imageProcessingErrorf("identify", fmt.Errorf("parse dimensions from %q: %w", stdout.String(), err))
	}
	return w, h, nil
}

// TokenizeConvertArgs splits a raw, user-supplied convert argument string
// (e.g. "-modulate 120,100,100 -sharpen 0x1") into argv tokens, the way
// ShellProcessor.Convert expects to receive rawArgs.
func TokenizeConvertArgs(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	tokens, err := shellwords.Parse(raw)
	if err != nil {
		return nil, invalidInputErrorf("TokenizeConvertArgs", "parse raw convert args %q: %w", raw, err)
	}
	return tokens, nil
}
