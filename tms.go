package magicktiler

import (
	"encoding/xml"
	"fmt"
	"os"
)

// TMSTiler builds a TMS-compatible pyramid: tiles at {z}/{col}/{row}.{ext},
// row 0 at the BOTTOM of the tile grid (the opposite of how Crop enumerates
// rows top-to-bottom), and a tilemapresource.xml describing each zoom
// level's resolution.
type TMSTiler struct {
	*TilerContext
}

// NewTMSTiler wraps ctx as a TMS scheme tiler.
func NewTMSTiler(ctx *TilerContext) *TMSTiler {
	return &TMSTiler{TilerContext: ctx}
}

// Convert implements Tiler.
func (t *TMSTiler) Convert(src string) error {
	defer t.Cleanup()
	if err := t.EnsureDirectories(); err != nil {
		return err
	}
	srcW, srcH, err := t.Processor.Identify(src)
	if err != nil {
		return err
	}

	// TMS requires every level's canvas to be an exact multiple of the
	// tile size; pad on the top and right so the real pixels stay anchored
	// at the bottom-left, matching TMS's bottom-left tile origin.
	canvasW := t.TileWidth * ceilDiv(srcW, t.TileWidth)
	canvasH := t.TileHeight * ceilDiv(srcH, t.TileHeight)

	info := NewTileSetInfo(canvasW, canvasH, t.TileWidth, t.TileHeight, t.Format)
	zoomLevels := info.ZoomLevels()

	baseCount := info.NumXTiles(0)
	stripes, err := t.StripeImage(src, canvasW, canvasH, OrientationVertical, baseCount, "SouthWest")
	if err != nil {
		return err
	}

	levels := make([][]Stripe, zoomLevels)
	levels[0] = stripes
	current := stripes
	for z := 1; z < zoomLevels; z++ {
		canvas := &CanvasOptions{Gravity: "SouthWest", ExtentWidth: t.TileWidth * 2, ExtentHeight: canvasH >> uint(z), BackgroundColor: t.BackgroundColor}
		next, err := t.mergeLevel(current, z, canvas)
		if err != nil {
			return err
		}
		levels[z] = next
		current = next
	}

	for z := 0; z < zoomLevels; z++ {
		label := zoomLevels - 1 - z
		yTiles := info.NumYTiles(z)
		colOffset := 0
		for _, stripe := range levels[z] {
			if err := t.emitTiles(stripe, label, colOffset, yTiles); err != nil {
				return err
			}
			colOffset++
		}
	}

	for _, level := range levels {
		for _, s := range level {
			s.Delete()
		}
	}

	if err := t.writeTileMapResource(info, zoomLevels); err != nil {
		return err
	}
	return t.WriteHTMLPreview(info)
}

func (t *TMSTiler) mergeLevel(prev []Stripe, level int, canvas *CanvasOptions) ([]Stripe, error) {
	var next []Stripe
	i := 0
	pairIdx := 0
	for ; i+1 < len(prev); i += 2 {
		tmp := t.WorkingFile(fmt.Sprintf("merge-tmp-%d-%d.%s", level, pairIdx, t.Format.Extension()))
		target := t.WorkingFile(fmt.Sprintf("merge-%d-%d.%s", level, pairIdx, t.Format.Extension()))
		merged, err := prev[i].Merge(t.Processor, prev[i+1], tmp, target, nil)
		if err != nil {
			return nil, err
		}
		next = append(next, merged)
		pairIdx++
	}
	if i < len(prev) {
		target := t.WorkingFile(fmt.Sprintf("shrink-%d-%d.%s", level, pairIdx, t.Format.Extension()))
		shrunk, err := prev[i].Shrink(t.Processor, target, canvas)
		if err != nil {
			return nil, err
		}
		next = append(next, shrunk)
	}
	return next, nil
}

// emitTiles crops a Vertical stripe (spanning the full canvas height at
// column colOffset) into its tiles, inverting the row index so row 0 lands
// at the bottom of the grid as TMS requires.
func (t *TMSTiler) emitTiles(stripe Stripe, label, colOffset, yTiles int) error {
	return t.Processor.Crop(stripe.Path, func(index int) string {
		row := yTiles - 1 - index
		dir := t.TilesetFile(fmt.Sprintf("%d", label), fmt.Sprintf("%d", colOffset))
		os.MkdirAll(dir, 0o755)
		return fmt.Sprintf("%s/%d.%s", dir, row, t.Format.Extension())
	}, t.TileWidth, t.TileHeight)
}

type tmsTileMap struct {
	XMLName  xml.Name    `xml:"TileMap"`
	Version  string      `xml:"version,attr"`
	TileSets tmsTileSets `xml:"TileSets"`
}

type tmsTileSets struct {
	Profile  string       `xml:"profile,attr"`
	TileSets []tmsTileSet `xml:"TileSet"`
}

type tmsTileSet struct {
	Href          string `xml:"href,attr"`
	UnitsPerPixel int    `xml:"units-per-pixel,attr"`
	Order         int    `xml:"order,attr"`
}

func (t *TMSTiler) writeTileMapResource(info TileSetInfo, zoomLevels int) error {
	doc := tmsTileMap{Version: "1.0.0", TileSets: tmsTileSets{Profile: "zoom"}}
	for label := 0; label < zoomLevels; label++ {
		doc.TileSets.TileSets = append(doc.TileSets.TileSets, tmsTileSet{
			Href:          fmt.Sprintf("%d", label),
			UnitsPerPixel: 1 << uint(zoomLevels-1-label),
			Order:         label,
		})
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return generalErrorf("writeTileMapResource", err)
	}
	data = append([]byte(xml.Header), data...)
	if err := os.WriteFile(t.TilesetFile("tilemapresource.xml"), data, 0o644); err != nil {
		return ioErrorf("writeTileMapResource", err)
	}
	return nil
}
