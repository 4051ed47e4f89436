package magicktiler

import (
	"encoding/json"
	"fmt"
	"os"
)

// GoogleMapsTiler builds a Google Maps-compatible pyramid: flat tile
// names {z}-{col}-{row}.{ext} (z 0 is the coarsest, single-tile level) and
// a gmap_tileset.info metadata file. Unlike Zoomify/TMS, Google Maps
// requires a square canvas, so the source is first resized and padded to
// tileWidth*2^(zoomLevels-1) on each side.
type GoogleMapsTiler struct {
	*TilerContext
}

// NewGoogleMapsTiler wraps ctx as a Google Maps scheme tiler.
func NewGoogleMapsTiler(ctx *TilerContext) *GoogleMapsTiler {
	return &GoogleMapsTiler{TilerContext: ctx}
}

// squareCanvasSide returns the tileWidth*2^k side CLOSEST to max(w,h) --
// not necessarily the smallest one that covers it. Ported literally from
// the original's "find the closest multiple of the tile size and a power
// of two" search: it walks tileWidth*2^0, tileWidth*2^1, ... until it
// passes max(w,h), then picks whichever of the last two candidates has the
// smaller absolute distance to max(w,h). For an image whose larger side
// sits just above the midpoint between two candidates, the result rounds
// UP; just below, it rounds DOWN -- unlike Zoomify/TMS, which always round
// up to guarantee coverage. Kept as-is rather than "fixed" (see
// DESIGN.md); for a source smaller than tileWidth/2 this can return 0,
// a degenerate edge the original shares.
func squareCanvasSide(w, h, tileWidth int) int {
	maxDim := maxInt(w, h)
	prev, cur := 0, 0
	for pow := 0; ; pow++ {
		prev = cur
		cur = tileWidth << uint(pow)
		if cur > maxDim {
			break
		}
	}
	if absInt(maxDim-prev) < absInt(maxDim-cur) {
		return prev
	}
	return cur
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// resizeDimensions mirrors the original resize step literally, including
// its surprising aspect-ratio handling: the scale ratio is always
// ceil(width/height) as an INTEGER multiplier (never a fractional scale),
// applied to whichever side the target square side (side) does not pin
// directly. When height is the larger (or equal) side, that ratio
// collapses to 1 for any width <= height, so the resized image comes out
// already square; when width is the larger side, the ratio can be 2 or
// more, which can make the derived height far exceed side. This is
// preserved deliberately, not "fixed" -- see DESIGN.md.
func resizeDimensions(w, h, side int) (newW, newH int) {
	ratio := ceilDiv(w, h)
	if h >= w {
		return side * ratio, side
	}
	return side, side * ratio
}

// Convert implements Tiler.
func (t *GoogleMapsTiler) Convert(src string) error {
	defer t.Cleanup()
	if err := t.EnsureDirectories(); err != nil {
		return err
	}
	srcW, srcH, err := t.Processor.Identify(src)
	if err != nil {
		return err
	}
	side := squareCanvasSide(srcW, srcH, t.TileWidth)
	resizedW, resizedH := resizeDimensions(srcW, srcH, side)

	resized := t.WorkingFile("gmap-resized." + t.Format.Extension())
	if err := t.Processor.Resize(src, resized, resizedW, resizedH, true); err != nil {
		return err
	}

	base := t.TilesetFile("gmapbase." + t.Format.Extension())
	if err := t.Processor.Montage([]string{resized}, base, 1, 1, side, side, t.BackgroundColor, "Center"); err != nil {
		return err
	}

	info := NewTileSetInfo(side, side, t.TileWidth, t.TileHeight, t.Format)
	zoomLevels := info.ZoomLevels()

	baseCount := info.NumYTiles(0)
	stripes, err := t.StripeImage(base, side, side, OrientationHorizontal, baseCount, "Center")
	if err != nil {
		return err
	}

	levels := make([][]Stripe, zoomLevels)
	levels[0] = stripes
	current := stripes
	for z := 1; z < zoomLevels; z++ {
		next, err := t.mergeLevel(current, z)
		if err != nil {
			return err
		}
		levels[z] = next
		current = next
	}

	for z := 0; z < zoomLevels; z++ {
		label := zoomLevels - 1 - z
		xTiles := info.NumXTiles(z)
		rowOffset := 0
		for _, stripe := range levels[z] {
			if err := t.emitTiles(stripe, label, rowOffset, xTiles); err != nil {
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

	info.ImageFile = src
	if err := t.writeMetadata(info); err != nil {
		return err
	}
	return t.WriteHTMLPreview(info)
}

func (t *GoogleMapsTiler) mergeLevel(prev []Stripe, level int) ([]Stripe, error) {
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
		shrunk, err := prev[i].Shrink(t.Processor, target, nil)
		if err != nil {
			return nil, err
		}
		next = append(next, shrunk)
	}
	return next, nil
}

func (t *GoogleMapsTiler) emitTiles(stripe Stripe, label, rowOffset, xTiles int) error {
	return t.Processor.Crop(stripe.Path, func(index int) string {
		col := index % xTiles
		row := rowOffset + index/xTiles
		return t.TilesetFile(fmt.Sprintf("%d-%d-%d.%s", label, col, row, t.Format.Extension()))
	}, t.TileWidth, t.TileHeight)
}

// writeMetadata serializes info as gmap_tileset.info, per §6's documented
// schema: a plain serialized TileSetInfo, the record GoogleMapsValidator
// recovers geometry (including format) from.
func (t *GoogleMapsTiler) writeMetadata(info TileSetInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return generalErrorf("writeMetadata", err)
	}
	if err := os.WriteFile(t.TilesetFile("gmap_tileset.info"), data, 0o644); err != nil {
		return ioErrorf("writeMetadata", err)
	}
	return nil
}
