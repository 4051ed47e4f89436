package magicktiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestContext(t *testing.T, proc ImageProcessor) *TilerContext {
	t.Helper()
	root := t.TempDir()
	ctx, err := NewTilerContext(proc, root, WithTileSize(256, 256))
	assert.NoError(t, err)
	t.Cleanup(func() { ctx.Cleanup() })
	assert.NoError(t, ctx.EnsureDirectories())
	return ctx
}

func TestTilerContextDefaults(t *testing.T) {
	ctx := newTestContext(t, &fakeProcessor{})
	assert.Equal(t, 256, ctx.TileWidth)
	assert.Equal(t, 256, ctx.TileHeight)
	assert.Equal(t, FormatJPEG, ctx.Format)
	assert.Equal(t, "#ffffffff", ctx.BackgroundColor)
	assert.IsType(t, NopPreviewRenderer{}, ctx.Preview)
}

func TestTilerContextWorkingAndTilesetFiles(t *testing.T) {
	ctx := newTestContext(t, &fakeProcessor{})
	assert.Equal(t, filepath.Join(ctx.WorkingDir, "a.jpg"), ctx.WorkingFile("a.jpg"))
	assert.Equal(t, filepath.Join(ctx.TilesetRootDir, "TileGroup0", "0-0-0.jpg"), ctx.TilesetFile("TileGroup0", "0-0-0.jpg"))
}

func TestWriteHTMLPreviewSkippedByDefault(t *testing.T) {
	ctx := newTestContext(t, &fakeProcessor{})
	assert.NoError(t, ctx.WriteHTMLPreview(NewTileSetInfo(100, 100, 256, 256, FormatJPEG)))
	_, err := os.Stat(ctx.TilesetFile("preview.html"))
	assert.True(t, os.IsNotExist(err))
}

type stubPreviewRenderer struct{ html string }

func (s stubPreviewRenderer) Render(info TileSetInfo, tilesetRoot string) (string, error) {
	return s.html, nil
}

func TestWriteHTMLPreviewWritesFileWhenEnabled(t *testing.T) {
	root := t.TempDir()
	ctx, err := NewTilerContext(&fakeProcessor{}, root,
		WithGeneratePreview(true),
		WithPreviewRenderer(stubPreviewRenderer{html: "<html>hi</html>"}))
	assert.NoError(t, err)
	t.Cleanup(func() { ctx.Cleanup() })
	assert.NoError(t, ctx.EnsureDirectories())

	assert.NoError(t, ctx.WriteHTMLPreview(NewTileSetInfo(100, 100, 256, 256, FormatJPEG)))
	data, err := os.ReadFile(ctx.TilesetFile("preview.html"))
	assert.NoError(t, err)
	assert.Equal(t, "<html>hi</html>", string(data))
}

func TestStripeImagePadsWhenCanvasExceedsSource(t *testing.T) {
	proc := &fakeProcessor{identifyW: 200, identifyH: 200}
	ctx := newTestContext(t, proc)

	stripes, err := ctx.StripeImage("src.jpg", 256, 512, OrientationVertical, 2, "Center")
	assert.NoError(t, err)
	assert.Len(t, stripes, 2)
	for _, s := range stripes {
		assert.Equal(t, 128, s.Width)
		assert.Equal(t, 512, s.Height)
		assert.Equal(t, OrientationVertical, s.Orientation)
	}

	assert.Len(t, proc.montageCalls, 1)
	assert.Equal(t, []string{"src.jpg"}, proc.montageCalls[0].srcs)
	assert.Equal(t, 256, proc.montageCalls[0].cellWidth)
	assert.Equal(t, 512, proc.montageCalls[0].cellHeight)

	assert.Len(t, proc.cropCalls, 1)
	assert.Equal(t, 128, proc.cropCalls[0].width)
	assert.Equal(t, 512, proc.cropCalls[0].height)
}

func TestStripeImageSkipsPaddingWhenSourceAlreadyFitsCanvas(t *testing.T) {
	proc := &fakeProcessor{identifyW: 1024, identifyH: 256}
	ctx := newTestContext(t, proc)

	stripes, err := ctx.StripeImage("src.jpg", 1024, 256, OrientationHorizontal, 1, "Center")
	assert.NoError(t, err)
	assert.Len(t, stripes, 1)
	assert.Empty(t, proc.montageCalls)
	assert.Equal(t, "src.jpg", proc.cropCalls[0].src)
}
