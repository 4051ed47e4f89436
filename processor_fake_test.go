package magicktiler

import "os"

// fakeProcessor records the calls ImageProcessor methods receive so tests
// can assert on composition (grid shape, cell size, background/gravity)
// without shelling out to gm/convert.
type fakeProcessor struct {
	montageCalls []montageCall
	convertCalls []convertCall
	cropCalls    []cropCall
	identifyW    int
	identifyH    int

	// cropGrid, when set, overrides how many tiles Crop produces for a
	// given source; by default Crop derives it from identifyW/identifyH so
	// whole-tileset tests don't need to track every working file's size.
	cropGrid func(src string, width, height int) (cols, rows int)

	// writeMontageOutputs, when set, makes Montage create an empty file at
	// dst so tests can check which montage outputs survive a conversion.
	writeMontageOutputs bool
}

type cropCall struct {
	src           string
	width, height int
	produced      []string
}

type montageCall struct {
	srcs                  []string
	dst                   string
	xTiles, yTiles        int
	cellWidth, cellHeight int
	background, gravity   string
}

type convertCall struct {
	src, dst string
	rawArgs  []string
}

func (f *fakeProcessor) Resize(src, dst string, width, height int, exact bool) error {
	return nil
}

func (f *fakeProcessor) Crop(src string, dstPattern func(index int) string, width, height int) error {
	cols, rows := 1, 1
	if f.cropGrid != nil {
		cols, rows = f.cropGrid(src, width, height)
	} else if f.identifyW > 0 && f.identifyH > 0 {
		cols, rows = ceilDiv(f.identifyW, width), ceilDiv(f.identifyH, height)
	}
	var produced []string
	for i := 0; i < cols*rows; i++ {
		produced = append(produced, dstPattern(i))
	}
	f.cropCalls = append(f.cropCalls, cropCall{src: src, width: width, height: height, produced: produced})
	return nil
}

func (f *fakeProcessor) Montage(srcs []string, dst string, xTiles, yTiles, cellWidth, cellHeight int, background, gravity string) error {
	f.montageCalls = append(f.montageCalls, montageCall{
		srcs: append([]string(nil), srcs...), dst: dst,
		xTiles: xTiles, yTiles: yTiles,
		cellWidth: cellWidth, cellHeight: cellHeight,
		background: background, gravity: gravity,
	})
	if f.writeMontageOutputs {
		return os.WriteFile(dst, nil, 0o644)
	}
	return nil
}

func (f *fakeProcessor) Convert(src, dst string, rawArgs []string) error {
	f.convertCalls = append(f.convertCalls, convertCall{src: src, dst: dst, rawArgs: append([]string(nil), rawArgs...)})
	return nil
}

func (f *fakeProcessor) Identify(src string) (int, int, error) {
	return f.identifyW, f.identifyH, nil
}
