// Package colors maps group ids and scalar values to display colors for exported voxels and
// elevation images.
package colors

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// PaletteSize is the number of distinct group colors before the palette repeats.
const PaletteSize = 19

// palette holds normalized RGB triples. Neighboring entries differ strongly in hue so that
// consecutive group ids stay distinguishable.
var palette = [PaletteSize][3]float32{
	{0.90, 0.10, 0.10},
	{0.10, 0.70, 0.10},
	{0.10, 0.30, 0.90},
	{0.95, 0.85, 0.10},
	{0.60, 0.10, 0.80},
	{0.10, 0.80, 0.80},
	{0.95, 0.50, 0.05},
	{0.55, 0.35, 0.15},
	{0.95, 0.40, 0.70},
	{0.50, 0.80, 0.20},
	{0.00, 0.45, 0.45},
	{0.65, 0.65, 0.95},
	{0.50, 0.00, 0.10},
	{0.80, 0.80, 0.55},
	{0.35, 0.35, 0.35},
	{0.00, 0.20, 0.50},
	{0.95, 0.75, 0.60},
	{0.40, 0.55, 0.00},
	{0.75, 0.75, 0.75},
}

// AssignColor returns channel 0 (red), 1 (green) or 2 (blue) of the color of the given group.
// The result is in [0, 1]. Negative groups wrap around like positive ones. Any other channel
// yields 0.
func AssignColor(group, channel int) float32 {
	if channel < 0 || channel > 2 {
		return 0
	}
	return palette[paletteIndex(group)][channel]
}

// Ungrouped is the neutral gray used for voxels that carry no group. It is not part of the
// palette.
var Ungrouped = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// GroupColor returns the opaque color of the given group.
func GroupColor(group int) color.NRGBA {
	rgb := palette[paletteIndex(group)]
	r, g, b := colorful.Color{R: float64(rgb[0]), G: float64(rgb[1]), B: float64(rgb[2])}.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

// HeatColor maps t in [0, 1] onto a blue to red hue ramp. Values outside the range are
// clamped and NaN maps to the low end.
func HeatColor(t float64) color.NRGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	// hue 240 is blue, 0 is red
	r, g, b := colorful.Hsv(240*(1-t), 1, 1).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

func paletteIndex(group int) int {
	i := group % PaletteSize
	if i < 0 {
		i += PaletteSize
	}
	return i
}
