package magicktiler

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// tilesPerGroup is the maximum number of tiles a single TileGroup directory
// holds, matching the Zoomify viewer's own bucketing convention.
const tilesPerGroup = 256

// ZoomifyTiler builds a Zoomify-compatible pyramid: tiles named
// TileGroup{g}/{zoomlevel}-{col}-{row}.jpg, zoomlevel 0 being the coarsest,
// and a top-level ImageProperties.xml describing the geometry.
type ZoomifyTiler struct {
	*TilerContext
}

// NewZoomifyTiler wraps ctx as a Zoomify scheme tiler.
func NewZoomifyTiler(ctx *TilerContext) *ZoomifyTiler {
	return &ZoomifyTiler{TilerContext: ctx}
}

// Convert implements Tiler.
func (t *ZoomifyTiler) Convert(src string) error {
	defer t.Cleanup()
	if err := t.EnsureDirectories(); err != nil {
		return err
	}
	srcW, srcH, err := t.Processor.Identify(src)
	if err != nil {
		return err
	}
	info := NewTileSetInfo(srcW, srcH, t.TileWidth, t.TileHeight, t.Format)
	info.ImageFile = filepath.Base(src)
	zoomLevels := info.ZoomLevels()

	baseCount := info.NumYTiles(0)
	stripes, err := t.StripeImage(src, srcW, srcH, OrientationHorizontal, baseCount, "NorthWest")
	if err != nil {
		return err
	}

	groupCounter := 0
	emit := func(stripe Stripe, z, rowOffset, xTiles int) error {
		label := zoomLevels - 1 - z
		pattern := func(index int) string {
			col := index % xTiles
			row := rowOffset + index/xTiles
			group := groupCounter / tilesPerGroup
			groupCounter++
			return t.TilesetFile(fmt.Sprintf("TileGroup%d", group), fmt.Sprintf("%d-%d-%d.%s", label, col, row, t.Format.Extension()))
		}
		return t.cropStripeTiles(stripe, pattern)
	}

	// Coarsest level first, so TileGroup0's first entries are the single
	// overview tile, matching how a Zoomify viewer expects its buckets laid
	// out.
	levels := make([][]Stripe, zoomLevels)
	levels[0] = stripes

	current := stripes
	for z := 1; z < zoomLevels; z++ {
		next, err := mergeLevel(t.Processor, current, t, z)
		if err != nil {
			return err
		}
		levels[z] = next
		current = next
	}

	for z := zoomLevels - 1; z >= 0; z-- {
		xTiles := info.NumXTiles(z)
		rowOffset := 0
		for _, stripe := range levels[z] {
			if err := emit(stripe, z, rowOffset, xTiles); err != nil {
				return err
			}
			rowOffset++
		}
	}

	for _, level := range levels {
		for _, s := range level {
			s.Delete()
		}
	}

	if err := t.writeImageProperties(info); err != nil {
		return err
	}
	return t.WriteHTMLPreview(info)
}

// cropStripeTiles crops stripe into TileWidth×TileHeight tiles using the
// tiler's configured processor, writing them via pattern.
func (t *ZoomifyTiler) cropStripeTiles(stripe Stripe, pattern func(index int) string) error {
	return t.Processor.Crop(stripe.Path, func(index int) string {
		dst := pattern(index)
		os.MkdirAll(filepath.Dir(dst), 0o755)
		return dst
	}, t.TileWidth, t.TileHeight)
}

// mergeLevel pairs up adjacent stripes of the previous level, shrinking an
// unpaired final stripe on its own, producing the next (coarser) level.
func mergeLevel(proc ImageProcessor, prev []Stripe, t *ZoomifyTiler, level int) ([]Stripe, error) {
	var next []Stripe
	i := 0
	pairIdx := 0
	for ; i+1 < len(prev); i += 2 {
		tmp := t.WorkingFile(fmt.Sprintf("merge-tmp-%d-%d.%s", level, pairIdx, t.Format.Extension()))
		target := t.WorkingFile(fmt.Sprintf("merge-%d-%d.%s", level, pairIdx, t.Format.Extension()))
		merged, err := prev[i].Merge(proc, prev[i+1], tmp, target, nil)
		if err != nil {
			return nil, err
		}
		next = append(next, merged)
		pairIdx++
	}
	if i < len(prev) {
		target := t.WorkingFile(fmt.Sprintf("shrink-%d-%d.%s", level, pairIdx, t.Format.Extension()))
		shrunk, err := prev[i].Shrink(proc, target, nil)
		if err != nil {
			return nil, err
		}
		next = append(next, shrunk)
	}
	return next, nil
}

// zoomifyImageProperties is the root element of ImageProperties.xml.
type zoomifyImageProperties struct {
	XMLName   xml.Name `xml:"IMAGE_PROPERTIES"`
	Width     int      `xml:"WIDTH,attr"`
	Height    int      `xml:"HEIGHT,attr"`
	NumTiles  int      `xml:"NUMTILES,attr"`
	NumImages int      `xml:"NUMIMAGES,attr"`
	Version   string   `xml:"VERSION,attr"`
	TileSize  int      `xml:"TILESIZE,attr"`
}

func (t *ZoomifyTiler) writeImageProperties(info TileSetInfo) error {
	props := zoomifyImageProperties{
		Width:     info.Width,
		Height:    info.Height,
		NumTiles:  info.TotalTiles(),
		NumImages: 1,
		Version:   "1.8",
		TileSize:  t.TileWidth,
	}
	data, err := xml.MarshalIndent(props, "", "  ")
	if err != nil {
		return generalErrorf("writeImageProperties", err)
	}
	data = append([]byte(xml.Header), data...)
	if err := os.WriteFile(t.TilesetFile("ImageProperties.xml"), data, 0o644); err != nil {
		return ioErrorf("writeImageProperties", err)
	}
	return nil
}
