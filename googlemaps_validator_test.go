package magicktiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeGoogleMapsTileset(t *testing.T, root string, side, tileSize int, format ImageFormat) TileSetInfo {
	t.Helper()
	info := NewTileSetInfo(side, side, tileSize, tileSize, format)

	data, err := json.Marshal(info)
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(filepath.Join(root, "gmap_tileset.info"), data, 0o644))

	zoomLevels := info.ZoomLevels()
	for label := 0; label < zoomLevels; label++ {
		z := zoomLevels - 1 - label
		for row := 0; row < info.NumYTiles(z); row++ {
			for col := 0; col < info.NumXTiles(z); col++ {
				path := filepath.Join(root, fmt.Sprintf("%d-%d-%d.%s", label, col, row, format.Extension()))
				assert.NoError(t, os.WriteFile(path, []byte("tile-bytes"), 0o644))
			}
		}
	}
	return info
}

func TestGoogleMapsValidatorAcceptsCompleteTileset(t *testing.T) {
	root := t.TempDir()
	writeGoogleMapsTileset(t, root, 1024, 256, FormatJPEG)

	v := NewGoogleMapsValidator()
	assert.True(t, v.IsTilesetDir(root))
	assert.NoError(t, v.Validate(root))
}

func TestGoogleMapsValidatorRecoversFormatFromMetadata(t *testing.T) {
	// gmap_tileset.info is a serialized TileSetInfo, so a PNG tileset's
	// format round-trips from the file itself rather than a caller-supplied
	// default.
	root := t.TempDir()
	writeGoogleMapsTileset(t, root, 512, 256, FormatPNG)

	v := NewGoogleMapsValidator()
	assert.NoError(t, v.Validate(root))
}

func TestGoogleMapsValidatorRejectsMissingTile(t *testing.T) {
	root := t.TempDir()
	writeGoogleMapsTileset(t, root, 1024, 256, FormatJPEG)
	assert.NoError(t, os.Remove(filepath.Join(root, "0-0-0.jpg")))

	v := NewGoogleMapsValidator()
	err := v.Validate(root)
	assert.Error(t, err)
	var valErr *ValidationFailedError
	assert.ErrorAs(t, err, &valErr)
}

func TestGoogleMapsValidatorRejectsMismatchedDeclaredFormat(t *testing.T) {
	// The metadata declares JPEG but the tiles on disk are PNG-named, so
	// every lookup misses.
	root := t.TempDir()
	writeGoogleMapsTileset(t, root, 512, 256, FormatPNG)
	info := NewTileSetInfo(512, 512, 256, 256, FormatJPEG)
	data, err := json.Marshal(info)
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(filepath.Join(root, "gmap_tileset.info"), data, 0o644))

	v := NewGoogleMapsValidator()
	assert.Error(t, v.Validate(root))
}
