package magicktiler

// ImageFormat is the output raster format of generated tiles and of any
// padded working images.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
	FormatTIFF
)

func (f ImageFormat) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatTIFF:
		return "TIFF"
	default:
		return "UNKNOWN"
	}
}

// Extension returns the file extension (without a leading dot) used for
// tiles and working files in this format.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	case FormatTIFF:
		return "tif"
	default:
		return ""
	}
}

// MimeType returns the MIME type advertised in generated metadata files.
func (f ImageFormat) MimeType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// ParseImageFormat accepts the common spellings ("jpg", "jpeg", "png",
// "tif", "tiff") case-insensitively.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch lower(s) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return 0, invalidInputErrorf("ParseImageFormat", "unrecognized image format %q", s)
	}
}

// ImageProcessingSystem selects which command-line raster toolkit a
// ShellProcessor shells out to.
type ImageProcessingSystem int

const (
	SystemGraphicsMagick ImageProcessingSystem = iota
	SystemImageMagick
)

func (s ImageProcessingSystem) String() string {
	switch s {
	case SystemGraphicsMagick:
		return "GraphicsMagick"
	case SystemImageMagick:
		return "ImageMagick"
	default:
		return "unknown"
	}
}

// ParseImageProcessingSystem accepts "gm"/"graphicsmagick" and
// "im"/"imagemagick" case-insensitively.
func ParseImageProcessingSystem(s string) (ImageProcessingSystem, error) {
	switch lower(s) {
	case "gm", "graphicsmagick":
		return SystemGraphicsMagick, nil
	case "im", "imagemagick":
		return SystemImageMagick, nil
	default:
		return 0, invalidInputErrorf("ParseImageProcessingSystem", "unrecognized processing system %q", s)
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
