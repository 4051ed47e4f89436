package magicktiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tiler is implemented by each scheme-specific pyramid builder. Convert
// reads src (a single raster file the configured ImageProcessor can open)
// and writes a complete tileset under the TilerContext's TilesetRootDir.
type Tiler interface {
	Convert(src string) error
}

// TilerContext holds everything every scheme tiler needs that is not
// specific to the scheme's own tile-naming and pyramid-walk logic: the
// processor, the configured tile size, the working and destination
// directories, and the optional preview renderer. Scheme tilers embed a
// *TilerContext and call its helpers rather than duplicating them.
type TilerContext struct {
	Processor       ImageProcessor
	TileWidth       int
	TileHeight      int
	Format          ImageFormat
	BackgroundColor string
	WorkingDir      string
	TilesetRootDir  string
	GeneratePreview bool
	Preview         PreviewRenderer
	Logger          *zap.Logger
}

// Option configures a TilerContext at construction time.
type Option func(*TilerContext)

// WithWorkingDirectory sets the scratch directory stripes and intermediate
// montages are written to. It defaults to a unique directory under
// os.TempDir().
func WithWorkingDirectory(dir string) Option {
	return func(c *TilerContext) { c.WorkingDir = dir }
}

// WithTilesetRootDir sets the destination directory the finished tileset
// (tiles plus metadata) is written under.
func WithTilesetRootDir(dir string) Option {
	return func(c *TilerContext) { c.TilesetRootDir = dir }
}

// WithGeneratePreview enables writing preview.html via the configured
// PreviewRenderer once conversion finishes.
func WithGeneratePreview(generate bool) Option {
	return func(c *TilerContext) { c.GeneratePreview = generate }
}

// WithPreviewRenderer overrides the default NopPreviewRenderer.
func WithPreviewRenderer(r PreviewRenderer) Option {
	return func(c *TilerContext) { c.Preview = r }
}

// WithTileSize sets both tile dimensions at once.
func WithTileSize(width, height int) Option {
	return func(c *TilerContext) { c.TileWidth, c.TileHeight = width, height }
}

// WithBackgroundColor sets the color used to pad a canvas that is larger
// than the source pixels it is given.
func WithBackgroundColor(color string) Option {
	return func(c *TilerContext) { c.BackgroundColor = color }
}

// WithFormat sets the output format for tiles and working files.
func WithFormat(format ImageFormat) Option {
	return func(c *TilerContext) { c.Format = format }
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *TilerContext) { c.Logger = logger }
}

// NewTilerContext builds a TilerContext with sane defaults: 256×256 tiles,
// JPEG output, a unique temp working directory, no preview generation.
func NewTilerContext(processor ImageProcessor, tilesetRootDir string, opts ...Option) (*TilerContext, error) {
	workingDir, err := os.MkdirTemp("", "magicktiler-"+uuid.New().String())
	if err != nil {
		return nil, ioErrorf("NewTilerContext", err)
	}
	c := &TilerContext{
		Processor:       processor,
		TileWidth:       256,
		TileHeight:      256,
		Format:          FormatJPEG,
		BackgroundColor: "#ffffffff",
		WorkingDir:      workingDir,
		TilesetRootDir:  tilesetRootDir,
		Preview:         NopPreviewRenderer{},
		Logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// EnsureDirectories creates the working and tileset root directories if
// they do not already exist.
func (c *TilerContext) EnsureDirectories() error {
	if err := os.MkdirAll(c.WorkingDir, 0o755); err != nil {
		return ioErrorf("EnsureDirectories", err)
	}
	if err := os.MkdirAll(c.TilesetRootDir, 0o755); err != nil {
		return ioErrorf("EnsureDirectories", err)
	}
	return nil
}

// WorkingFile returns a path under the working directory for an
// intermediate file that is never part of the final tileset.
func (c *TilerContext) WorkingFile(name string) string {
	return filepath.Join(c.WorkingDir, name)
}

// TilesetFile returns a path under the tileset root directory.
func (c *TilerContext) TilesetFile(parts ...string) string {
	return filepath.Join(append([]string{c.TilesetRootDir}, parts...)...)
}

// Cleanup removes the working directory. It is always safe to call, even
// after a failed conversion; per §4.9, stripes left behind on error are not
// an invariant violation, only wasted disk.
func (c *TilerContext) Cleanup() error {
	if err := os.RemoveAll(c.WorkingDir); err != nil {
		return ioErrorf("Cleanup", err)
	}
	return nil
}

// WriteHTMLPreview calls the configured PreviewRenderer and writes its
// output to preview.html under the tileset root, but only when
// GeneratePreview is set. It is a no-op otherwise.
func (c *TilerContext) WriteHTMLPreview(info TileSetInfo) error {
	if !c.GeneratePreview {
		return nil
	}
	html, err := c.Preview.Render(info, c.TilesetRootDir)
	if err != nil {
		return generalErrorf("WriteHTMLPreview", err)
	}
	if err := os.WriteFile(c.TilesetFile("preview.html"), []byte(html), 0o644); err != nil {
		return ioErrorf("WriteHTMLPreview", err)
	}
	return nil
}

// StripeImage pads src onto a canvasWidth×canvasHeight canvas (when either
// dimension exceeds the source's own, using gravity and BackgroundColor)
// and crops the result into count stripes: for Horizontal, a single column
// of full-width stripes, each canvasWidth×(canvasHeight/count); for
// Vertical, a single row of full-height stripes, each
// (canvasWidth/count)×canvasHeight. Stripes are returned in row-major
// (top-to-bottom or left-to-right) order.
func (c *TilerContext) StripeImage(src string, canvasWidth, canvasHeight int, orientation Orientation, count int, gravity string) ([]Stripe, error) {
	padded := src
	srcW, srcH, err := c.Processor.Identify(src)
	if err != nil {
		return nil, err
	}
	if canvasWidth > srcW || canvasHeight > srcH {
		padded = c.WorkingFile("padded." + c.Format.Extension())
		if err := c.Processor.Montage([]string{src}, padded, 1, 1, canvasWidth, canvasHeight, c.BackgroundColor, gravity); err != nil {
			return nil, err
		}
	}

	var stripeWidth, stripeHeight int
	switch orientation {
	case OrientationHorizontal:
		stripeWidth, stripeHeight = canvasWidth, canvasHeight/count
	case OrientationVertical:
		stripeWidth, stripeHeight = canvasWidth/count, canvasHeight
	}

	stripes := make([]Stripe, count)
	index := 0
	pattern := func(i int) string {
		return c.WorkingFile(fmt.Sprintf("stripe-%d.%s", i, c.Format.Extension()))
	}
	if err := c.Processor.Crop(padded, pattern, stripeWidth, stripeHeight); err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		stripes[i] = NewStripe(pattern(index), stripeWidth, stripeHeight, orientation)
		index++
	}
	return stripes, nil
}
