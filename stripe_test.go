package magicktiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripeMergeRejectsOrientationMismatch(t *testing.T) {
	h := NewStripe("h.jpg", 1024, 256, OrientationHorizontal)
	v := NewStripe("v.jpg", 256, 1024, OrientationVertical)
	proc := &fakeProcessor{}

	_, err := h.Merge(proc, v, "tmp.jpg", "out.jpg", nil)
	assert.Error(t, err)
	var tilingErr *TilingError
	assert.ErrorAs(t, err, &tilingErr)
	assert.Equal(t, KindInvalidInput, tilingErr.Kind)
}

func TestStripeMergeHorizontalGridAndDimensions(t *testing.T) {
	proc := &fakeProcessor{}
	a := NewStripe("a.jpg", 1024, 256, OrientationHorizontal)
	b := NewStripe("b.jpg", 1024, 256, OrientationHorizontal)

	merged, err := a.Merge(proc, b, "tmp.jpg", "out.jpg", nil)
	assert.NoError(t, err)
	assert.Equal(t, OrientationHorizontal, merged.Orientation)
	assert.Equal(t, 1024/2, merged.Width)
	assert.Equal(t, (256+256)/4, merged.Height)

	assert.Len(t, proc.montageCalls, 1)
	mc := proc.montageCalls[0]
	assert.Equal(t, 1, mc.xTiles)
	assert.Equal(t, 2, mc.yTiles)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, mc.srcs)

	assert.Len(t, proc.convertCalls, 1)
	assert.Equal(t, []string{"-resize", "50%x50%"}, proc.convertCalls[0].rawArgs)
}

func TestStripeMergeVerticalGridAndDimensions(t *testing.T) {
	proc := &fakeProcessor{}
	a := NewStripe("a.jpg", 256, 1024, OrientationVertical)
	b := NewStripe("b.jpg", 256, 1024, OrientationVertical)

	merged, err := a.Merge(proc, b, "tmp.jpg", "out.jpg", nil)
	assert.NoError(t, err)
	assert.Equal(t, (256+256)/2, merged.Width)
	assert.Equal(t, 1024/2, merged.Height)

	mc := proc.montageCalls[0]
	assert.Equal(t, 2, mc.xTiles)
	assert.Equal(t, 1, mc.yTiles)
}

func TestStripeMergeWithCanvasUsesExtentDimensions(t *testing.T) {
	proc := &fakeProcessor{}
	a := NewStripe("a.jpg", 128, 1024, OrientationVertical)
	b := NewStripe("b.jpg", 128, 1024, OrientationVertical)
	canvas := &CanvasOptions{Gravity: "SouthWest", ExtentWidth: 256, ExtentHeight: 1024, BackgroundColor: "#ffffffff"}

	merged, err := a.Merge(proc, b, "tmp.jpg", "out.jpg", canvas)
	assert.NoError(t, err)
	assert.Equal(t, 256, merged.Width)
	assert.Equal(t, 1024, merged.Height)
	assert.Empty(t, proc.convertCalls)

	mc := proc.montageCalls[0]
	assert.Equal(t, 128, mc.cellWidth)
	assert.Equal(t, 1024, mc.cellHeight)
	assert.Equal(t, "SouthWest", mc.gravity)
	assert.Equal(t, "#ffffffff", mc.background)
}

func TestStripeShrinkHalvesDimensions(t *testing.T) {
	proc := &fakeProcessor{}
	s := NewStripe("a.jpg", 512, 512, OrientationVertical)

	shrunk, err := s.Shrink(proc, "out.jpg", nil)
	assert.NoError(t, err)
	assert.Equal(t, 256, shrunk.Width)
	assert.Equal(t, 256, shrunk.Height)
	assert.Equal(t, []string{"-scale", "50%x50%"}, proc.convertCalls[0].rawArgs)
}

func TestStripeShrinkWithCanvasUsesNullSourceForUnpairedCell(t *testing.T) {
	proc := &fakeProcessor{}
	s := NewStripe("a.jpg", 128, 512, OrientationVertical)
	canvas := &CanvasOptions{ExtentWidth: 256, ExtentHeight: 512}

	shrunk, err := s.Shrink(proc, "out.jpg", canvas)
	assert.NoError(t, err)
	assert.Equal(t, 256, shrunk.Width)
	mc := proc.montageCalls[0]
	assert.Equal(t, []string{"a.jpg", NullSource}, mc.srcs)
}
