package quadtree

import (
	"image"
	"io"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/colors"
)

// ImageMode selects the cell statistic an elevation image shows.
type ImageMode int

const (
	// MinElevation colors every cell by its lowest sample.
	MinElevation ImageMode = iota
	// MaxElevation colors every cell by its highest sample.
	MaxElevation
	// PointDensity colors every cell by its number of samples.
	PointDensity
)

// maxImagePixels bounds the images Image renders.
const maxImagePixels = 1 << 26

// ParseImageMode returns the mode with the given name: min, max or density.
func ParseImageMode(name string) (ImageMode, error) {
	switch name {
	case "min":
		return MinElevation, nil
	case "max":
		return MaxElevation, nil
	case "density":
		return PointDensity, nil
	default:
		return 0, errors.Errorf("unknown image mode %q", name)
	}
}

func (mode ImageMode) String() string {
	switch mode {
	case MinElevation:
		return "min"
	case MaxElevation:
		return "max"
	case PointDensity:
		return "density"
	default:
		return "unknown"
	}
}

func (mode ImageMode) value(n *Node) float64 {
	s := n.Payload()
	switch mode {
	case MaxElevation:
		return s.MaxValue
	case PointDensity:
		return float64(s.Count)
	default:
		return s.MinValue
	}
}

// cell returns the column and row index of a leaf. Leaves are centered on multiples of the
// cell width, so rounding recovers the exact grid position.
func (quad *Quadtree) cell(n *Node) (int, int) {
	cellWidth := 2 * quad.DetailLevel()
	c := n.Center()
	return int(math.Round(c.X / cellWidth)), int(math.Round(c.Y / cellWidth))
}

// Image renders one pixel per cell over the bounds of all samples, north up. Occupied cells
// are colored with a heat ramp over the range of the chosen statistic; empty cells stay
// transparent.
func (quad *Quadtree) Image(mode ImageMode) (*image.NRGBA, error) {
	if quad.Size() == 0 {
		return nil, errors.New("cannot render an empty quadtree")
	}
	minX, minY := math.MaxInt, math.MaxInt
	maxX, maxY := math.MinInt, math.MinInt
	lo, hi := math.Inf(1), math.Inf(-1)
	quad.tree.IterateLeaves(func(n *Node) bool {
		x, y := quad.cell(n)
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
		v := mode.value(n)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		return true
	})
	width, height := maxX-minX+1, maxY-minY+1
	if width <= 0 || height <= 0 || width > maxImagePixels/height {
		return nil, errors.Errorf("image of %dx%d cells is too large", width, height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	quad.tree.IterateLeaves(func(n *Node) bool {
		x, y := quad.cell(n)
		t := 0.0
		if hi > lo {
			t = (mode.value(n) - lo) / (hi - lo)
		}
		img.SetNRGBA(x-minX, maxY-y, colors.HeatColor(t))
		return true
	})
	quad.logger.Debugw("rendered elevation image", "mode", mode.String(), "width", width, "height", height)
	return img, nil
}

// WriteBMP encodes the image as BMP.
func WriteBMP(w io.Writer, img image.Image) error {
	return errors.Wrap(bmp.Encode(w, img), "cannot encode bmp")
}
