package magicktiler

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ZoomifyValidator checks a Zoomify tileset directory against its
// ImageProperties.xml. Tile size and total tile count are recovered from
// the file's own TILESIZE/NUMTILES attributes rather than trusted from the
// caller, so Validate catches a metadata file that disagrees with itself.
type ZoomifyValidator struct {
	Format ImageFormat
}

// NewZoomifyValidator builds a validator for tilesets using the given tile
// file format.
func NewZoomifyValidator(format ImageFormat) *ZoomifyValidator {
	return &ZoomifyValidator{Format: format}
}

// IsTilesetDir implements Validator.
func (v *ZoomifyValidator) IsTilesetDir(root string) bool {
	_, err := os.Stat(filepath.Join(root, "ImageProperties.xml"))
	return err == nil
}

// zoomifyProperties is what parseImageProperties recovers from
// ImageProperties.xml.
type zoomifyProperties struct {
	width, height, tileSize, numTiles int
}

// parseImageProperties reads ImageProperties.xml using an XML token stream
// so attribute name matching is case-insensitive, rather than assuming the
// canonical all-caps spelling every writer (including our own) happens to
// use.
func parseImageProperties(path string) (zoomifyProperties, error) {
	f, err := os.Open(path)
	if err != nil {
		return zoomifyProperties{}, ioErrorf("parseImageProperties", err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return zoomifyProperties{}, ioErrorf("parseImageProperties", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "IMAGE_PROPERTIES") {
			continue
		}
		var props zoomifyProperties
		for _, attr := range start.Attr {
			switch {
			case strings.EqualFold(attr.Name.Local, "WIDTH"):
				props.width, _ = strconv.Atoi(attr.Value)
			case strings.EqualFold(attr.Name.Local, "HEIGHT"):
				props.height, _ = strconv.Atoi(attr.Value)
			case strings.EqualFold(attr.Name.Local, "TILESIZE"):
				props.tileSize, _ = strconv.Atoi(attr.Value)
			case strings.EqualFold(attr.Name.Local, "NUMTILES"):
				props.numTiles, _ = strconv.Atoi(attr.Value)
			}
		}
		return props, nil
	}
	return zoomifyProperties{}, validationFailedf("ImageProperties.xml has no IMAGE_PROPERTIES element")
}

// Validate implements Validator. It recomputes the expected zoom pyramid
// from the declared width/height/TILESIZE, checks that a declared NUMTILES
// (when present) equals the geometry's total, then checks every tile the
// tiler would have written exists, using the same coarsest-to-finest,
// TileGroup-bucketed enumeration order the tiler itself writes in.
func (v *ZoomifyValidator) Validate(root string) error {
	props, err := parseImageProperties(filepath.Join(root, "ImageProperties.xml"))
	if err != nil {
		return err
	}
	if props.tileSize <= 0 {
		return validationFailedf("ImageProperties.xml is missing a TILESIZE attribute")
	}
	info := NewTileSetInfo(props.width, props.height, props.tileSize, props.tileSize, v.Format)
	zoomLevels := info.ZoomLevels()
	if props.numTiles != 0 && props.numTiles != info.TotalTiles() {
		return validationFailedf("ImageProperties.xml declares NUMTILES=%d, geometry implies %d", props.numTiles, info.TotalTiles())
	}

	counter := 0
	for label := 0; label < zoomLevels; label++ {
		z := zoomLevels - 1 - label
		xTiles := info.NumXTiles(z)
		yTiles := info.NumYTiles(z)
		for row := 0; row < yTiles; row++ {
			for col := 0; col < xTiles; col++ {
				group := counter / tilesPerGroup
				counter++
				path := filepath.Join(root, fmt.Sprintf("TileGroup%d", group), fmt.Sprintf("%d-%d-%d.%s", label, col, row, v.Format.Extension()))
				if _, err := os.Stat(path); err != nil {
					return validationFailedf("missing tile %s", path)
				}
			}
		}
	}
	if counter != info.TotalTiles() {
		return validationFailedf("expected %d total tiles, enumerated %d", info.TotalTiles(), counter)
	}
	return nil
}
