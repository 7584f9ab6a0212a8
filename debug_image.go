package depthsort

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/gekko3d/depthsort/sortrt/core"
	"golang.org/x/image/draw"
)

// DepthImage renders the z component of a grid as a grayscale heat-map,
// near (small z) dark and far light, each cell scaled to scale x scale pixels.
// A sorted grid shows as a smooth ramp along rows.
func DepthImage(elems []Element, radix, scale int) (*image.Gray, error) {
	if len(elems) != radix*radix {
		return nil, fmt.Errorf("%w: %d elements for a %dx%d image", ErrSizeMismatch, len(elems), radix, radix)
	}
	if scale < 1 {
		scale = 1
	}

	lo, hi := elems[0][2], elems[0][2]
	for _, e := range elems {
		lo = min(lo, e[2])
		hi = max(hi, e[2])
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	cells := image.NewGray(image.Rect(0, 0, radix, radix))
	for i, e := range elems {
		c := core.CellOf(i, radix)
		cells.SetGray(c.U, c.V, color.Gray{Y: uint8((e[2] - lo) / span * 255)})
	}
	if scale == 1 {
		return cells, nil
	}

	out := image.NewGray(image.Rect(0, 0, radix*scale, radix*scale))
	draw.NearestNeighbor.Scale(out, out.Bounds(), cells, cells.Bounds(), draw.Src, nil)
	return out, nil
}

func WriteDepthPNG(w io.Writer, elems []Element, radix, scale int) error {
	img, err := DepthImage(elems, radix, scale)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
