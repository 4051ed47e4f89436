package magicktiler

import "encoding/json"

// ceilDiv computes ceil(a/b) for non-negative integers using exact integer
// arithmetic; float math.Ceil is never used for tile geometry.
func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// ceilLog2 returns the smallest k such that 1<<k >= n. ceilLog2(0) and
// ceilLog2(1) are both 0.
func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	k := 0
	v := 1
	for v < n {
		v <<= 1
		k++
	}
	return k
}

// ImageInfo is an optional descriptive sub-record of TileSetInfo, carried
// through for parity with tilesets that record their source image alongside
// the pyramid geometry.
type ImageInfo struct {
	File   string `json:"file,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// TileSetInfo is the derived geometry of a tile pyramid: the full-resolution
// image dimensions plus the configured tile size fully determine the number
// of zoom levels and the tile grid at each one.
//
// The zoom index z used by every method here runs from 0 (full resolution,
// the most tiles) to ZoomLevels()-1 (coarsest, fewest tiles) — the inverse
// of the label baked into Zoomify/TMS tile filenames, which count zoom 0 as
// the coarsest. Scheme tilers translate between the two conventions.
type TileSetInfo struct {
	ImageFile  string      `json:"image_file,omitempty"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	TileWidth  int         `json:"tile_width"`
	TileHeight int         `json:"tile_height"`
	Format     ImageFormat `json:"format"`
	ImgInfo    *ImageInfo  `json:"img_info,omitempty"`
}

// NewTileSetInfo builds a TileSetInfo for a width×height source image tiled
// at tileWidth×tileHeight.
func NewTileSetInfo(width, height, tileWidth, tileHeight int, format ImageFormat) TileSetInfo {
	return TileSetInfo{
		Width:      width,
		Height:     height,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		Format:     format,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ZoomLevels is ceil(log2(ceil(max(width,height)/tile_width))) + 1. It is
// always at least 1, even for an image smaller than a single tile.
func (t TileSetInfo) ZoomLevels() int {
	maxTiles := ceilDiv(maxInt(t.Width, t.Height), t.TileWidth)
	return ceilLog2(maxTiles) + 1
}

// NumXTiles is the number of tile columns at zoom index z.
func (t TileSetInfo) NumXTiles(z int) int {
	return ceilDiv(t.Width, t.TileWidth<<uint(z))
}

// NumYTiles is the number of tile rows at zoom index z.
func (t TileSetInfo) NumYTiles(z int) int {
	return ceilDiv(t.Height, t.TileHeight<<uint(z))
}

// TotalTiles sums NumXTiles(z)*NumYTiles(z) over every zoom index.
func (t TileSetInfo) TotalTiles() int {
	total := 0
	for z := 0; z < t.ZoomLevels(); z++ {
		total += t.NumXTiles(z) * t.NumYTiles(z)
	}
	return total
}

// MarshalJSON renders Format as its string name so ImageProperties-style
// metadata files stay human readable.
func (t TileSetInfo) MarshalJSON() ([]byte, error) {
	type alias TileSetInfo
	return json.Marshal(struct {
		alias
		Format string `json:"format"`
	}{alias: alias(t), Format: t.Format.String()})
}

// UnmarshalJSON accepts the string names produced by MarshalJSON.
func (t *TileSetInfo) UnmarshalJSON(data []byte) error {
	type alias TileSetInfo
	aux := struct {
		alias
		Format string `json:"format"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = TileSetInfo(aux.alias)
	if aux.Format != "" {
		f, err := ParseImageFormat(aux.Format)
		if err != nil {
			return err
		}
		t.Format = f
	}
	return nil
}
