package magicktiler

import (
	"os"
)

// Orientation describes how a stripe's long axis relates to the source
// image: a Horizontal stripe spans the full image width at a fixed tile
// height; a Vertical stripe spans the full image height at a fixed tile
// width. Stripes only merge with a sibling of the same orientation.
type Orientation int

const (
	OrientationHorizontal Orientation = iota
	OrientationVertical
)

// gridFor returns the montage grid (columns, rows) used to combine two
// sibling stripes of this orientation: Horizontal stripes stack top to
// bottom (1 column, 2 rows); Vertical stripes sit side by side (2 columns,
// 1 row).
func (o Orientation) gridFor() (xTiles, yTiles int) {
	if o == OrientationHorizontal {
		return 1, 2
	}
	return 2, 1
}

// CanvasOptions pads a stripe merge/shrink onto a fixed-size canvas instead
// of letting the result take on whatever dimensions the source pixels
// dictate. TMS passes one when shrinking the unpaired trailing stripe of a
// level; its paired merges take no canvas.
type CanvasOptions struct {
	Gravity         string
	ExtentWidth     int
	ExtentHeight    int
	BackgroundColor string
}

// Stripe is a horizontal or vertical slice of one pyramid level, backed by
// a working file on disk. Stripes are value objects: Merge and Shrink
// return a new Stripe referencing a new file, and the caller is responsible
// for calling Delete on stripes it no longer needs.
type Stripe struct {
	Path        string
	Width       int
	Height      int
	Orientation Orientation
}

// NewStripe wraps an existing working file as a Stripe.
func NewStripe(path string, width, height int, orientation Orientation) Stripe {
	return Stripe{Path: path, Width: width, Height: height, Orientation: orientation}
}

// Delete removes the stripe's backing file. It is idempotent: deleting an
// already-removed stripe is not an error.
func (s Stripe) Delete() error {
	if s.Path == "" {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return ioErrorf("Stripe.Delete", err)
	}
	return nil
}

// Merge combines s with an adjacent sibling stripe of the same orientation
// into one stripe at half resolution, writing the result to target. When
// canvas is non-nil, the merged result is placed into a
// canvas.ExtentWidth×canvas.ExtentHeight canvas instead of taking on the
// natural merged size.
//
// tmp names an intermediate working file used to hold the unscaled
// composite before the final 50% shrink; it is always removed before
// Merge returns.
func (s Stripe) Merge(proc ImageProcessor, other Stripe, tmp, target string, canvas *CanvasOptions) (Stripe, error) {
	if s.Orientation != other.Orientation {
		return Stripe{}, invalidInputErrorf("Stripe.Merge", "cannot merge stripes of different orientation")
	}
	xTiles, yTiles := s.Orientation.gridFor()

	if canvas != nil {
		cellWidth := canvas.ExtentWidth / xTiles
		cellHeight := canvas.ExtentHeight / yTiles
		if err := proc.Montage([]string{s.Path, other.Path}, target, xTiles, yTiles, cellWidth, cellHeight, canvas.BackgroundColor, canvas.Gravity); err != nil {
			return Stripe{}, err
		}
		return NewStripe(target, canvas.ExtentWidth, canvas.ExtentHeight, s.Orientation), nil
	}

	if err := proc.Montage([]string{s.Path, other.Path}, tmp, xTiles, yTiles, s.Width, s.Height, "", ""); err != nil {
		return Stripe{}, err
	}
	defer os.Remove(tmp)

	if err := proc.Convert(tmp, target, []string{"-resize", "50%x50%"}); err != nil {
		return Stripe{}, err
	}

	var w, h int
	switch s.Orientation {
	case OrientationHorizontal:
		w, h = s.Width/2, (s.Height+other.Height)/4
	case OrientationVertical:
		w, h = (s.Width+other.Width)/2, s.Height/2
	}
	return NewStripe(target, w, h, s.Orientation), nil
}

// Shrink halves the resolution of a single unpaired stripe, writing the
// result to target. When canvas is non-nil, the shrunk stripe is placed
// alongside a NullSource (background-only) cell onto a fixed-size canvas,
// exactly as Merge would combine it with a sibling.
func (s Stripe) Shrink(proc ImageProcessor, target string, canvas *CanvasOptions) (Stripe, error) {
	if canvas != nil {
		xTiles, yTiles := s.Orientation.gridFor()
		cellWidth := canvas.ExtentWidth / xTiles
		cellHeight := canvas.ExtentHeight / yTiles
		if err := proc.Montage([]string{s.Path, NullSource}, target, xTiles, yTiles, cellWidth, cellHeight, canvas.BackgroundColor, canvas.Gravity); err != nil {
			return Stripe{}, err
		}
		return NewStripe(target, canvas.ExtentWidth, canvas.ExtentHeight, s.Orientation), nil
	}

	if err := proc.Convert(s.Path, target, []string{"-scale", "50%x50%"}); err != nil {
		return Stripe{}, err
	}
	return NewStripe(target, s.Width/2, s.Height/2, s.Orientation), nil
}
