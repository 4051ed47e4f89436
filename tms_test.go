package magicktiler

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTMSTilerConvertProducesExpectedLayout(t *testing.T) {
	root := t.TempDir()
	proc := &fakeProcessor{identifyW: 512, identifyH: 300}
	ctx, err := NewTilerContext(proc, root, WithTileSize(256, 256))
	assert.NoError(t, err)
	tiler := NewTMSTiler(ctx)

	assert.NoError(t, tiler.Convert("source.jpg"))

	data, err := os.ReadFile(filepath.Join(root, "tilemapresource.xml"))
	assert.NoError(t, err)
	var doc tmsTileMap
	assert.NoError(t, xml.Unmarshal(data, &doc))
	assert.Len(t, doc.TileSets.TileSets, 2)
	assert.Equal(t, "0", doc.TileSets.TileSets[0].Href)
	assert.Equal(t, 2, doc.TileSets.TileSets[0].UnitsPerPixel)
	assert.Equal(t, "1", doc.TileSets.TileSets[1].Href)
	assert.Equal(t, 1, doc.TileSets.TileSets[1].UnitsPerPixel)

	_, err = os.Stat(filepath.Join(root, "0"))
	assert.NoError(t, err)
}

func TestTMSBaseStripeCountUsesColumnCount(t *testing.T) {
	// 1000x300 at tile size 256 pads to a 1024x512 canvas: 4 columns, 2
	// rows. TMS stripes vertically, so the base stripe count must be the
	// column count (4), not the row count (2) -- they only coincide when
	// the padded canvas happens to be square.
	root := t.TempDir()
	proc := &fakeProcessor{identifyW: 1000, identifyH: 300}
	ctx, err := NewTilerContext(proc, root, WithTileSize(256, 256))
	assert.NoError(t, err)
	tiler := NewTMSTiler(ctx)
	assert.NoError(t, tiler.Convert("source.jpg"))

	assert.NotEmpty(t, proc.cropCalls)
	// stripeWidth = canvasWidth/count; canvasWidth=1024, so a correct
	// column-based count of 4 yields stripeWidth=256. The (wrong) row-based
	// count of 2 would instead yield 512.
	assert.Equal(t, 256, proc.cropCalls[0].width)
	assert.Equal(t, 512, proc.cropCalls[0].height)
	assert.Len(t, proc.cropCalls[0].produced, 4)
}

func TestTMSCanvasPaddedToTileMultipleAnchoredSouthWest(t *testing.T) {
	// 512x300 pads to 512x512 (ceil(300/256)*256=512) before tiling, with
	// the real pixels anchored at the bottom-left per TMS's tile origin.
	root := t.TempDir()
	proc := &fakeProcessor{identifyW: 512, identifyH: 300}
	ctx, err := NewTilerContext(proc, root, WithTileSize(256, 256))
	assert.NoError(t, err)
	tiler := NewTMSTiler(ctx)
	assert.NoError(t, tiler.Convert("source.jpg"))

	assert.NotEmpty(t, proc.montageCalls)
	assert.Equal(t, "SouthWest", proc.montageCalls[0].gravity)
	assert.Equal(t, 512, proc.montageCalls[0].cellHeight)
}
