package magicktiler

// NullSource is a placeholder source image for montage cells that should be
// filled with background color only, such as the unpaired cell when
// shrinking a single stripe onto a canvas.
const NullSource = "null:"

// ImageProcessor is the abstraction over the command-line raster toolkit
// (GraphicsMagick's gm, or ImageMagick's convert/identify) that every
// pixel-touching operation goes through. The core never decodes or encodes
// pixels itself.
type ImageProcessor interface {
	// Resize scales src into dst so it fits within width×height, preserving
	// aspect ratio unless exact is true.
	Resize(src, dst string, width, height int, exact bool) error

	// Crop extracts successive width×height tiles from src in row-major
	// order and writes them to the paths produced by dstPattern, which
	// receives the 0-based tile index.
	Crop(src string, dstPattern func(index int) string, width, height int) error

	// Montage composes srcs into an xTiles×yTiles grid of cellWidth×
	// cellHeight cells, in row-major order, anchoring any cell whose source
	// is smaller than the cell with gravity and filling the remainder with
	// background. A src of NullSource leaves its cell entirely background.
	Montage(srcs []string, dst string, xTiles, yTiles, cellWidth, cellHeight int, background, gravity string) error

	// Convert runs an arbitrary raw argument list (already tokenized)
	// through the toolkit's general-purpose convert operation.
	Convert(src, dst string, rawArgs []string) error

	// Identify returns the pixel width and height of src.
	Identify(src string) (width, height int, err error)
}

// ImageProcessorOptions configures a ShellProcessor.
type ImageProcessorOptions struct {
	System          ImageProcessingSystem
	Format          ImageFormat
	JPEGQuality     int
	BackgroundColor string
}

// ImageProcessorOption mutates an ImageProcessorOptions during construction.
type ImageProcessorOption func(*ImageProcessorOptions)

// WithProcessingSystem selects gm or convert/identify as the backing tools.
func WithProcessingSystem(system ImageProcessingSystem) ImageProcessorOption {
	return func(o *ImageProcessorOptions) { o.System = system }
}

// WithOutputFormat sets the format used for tiles and working images.
func WithOutputFormat(format ImageFormat) ImageProcessorOption {
	return func(o *ImageProcessorOptions) { o.Format = format }
}

// WithJPEGQuality sets the quality passed to convert/gm when Format is
// FormatJPEG. Values outside (0,100] are ignored.
func WithJPEGQuality(quality int) ImageProcessorOption {
	return func(o *ImageProcessorOptions) {
		if quality > 0 && quality <= 100 {
			o.JPEGQuality = quality
		}
	}
}

// WithProcessorBackground sets the fill color Montage uses to pad a cell
// larger than its source when the caller passes an empty background.
func WithProcessorBackground(color string) ImageProcessorOption {
	return func(o *ImageProcessorOptions) { o.BackgroundColor = color }
}

// defaultImageProcessorOptions matches the default used throughout the
// scheme tilers whenever a caller does not configure one explicitly.
func defaultImageProcessorOptions() ImageProcessorOptions {
	return ImageProcessorOptions{
		System:          SystemGraphicsMagick,
		Format:          FormatJPEG,
		JPEGQuality:     75,
		BackgroundColor: "#ffffffff",
	}
}
