// Package pointcloud reads and writes the raw LiDAR points the analysis pipelines consume.
//
// Points are kept as a flat slice. The spatial structure lives in the trees built on top of
// them, so nothing here deduplicates or indexes positions.
package pointcloud

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
)

// Float64 values outside this range cannot be stored exactly after the LAS scaling step.
const (
	maxPreciseFloat64 = float64(1 << 53)
	minPreciseFloat64 = -maxPreciseFloat64
)

// Point is a single measurement. Value carries an optional scalar attribute like the return
// intensity of a LAS point.
type Point struct {
	Position r3.Vector
	Value    float64
	HasValue bool
}

// NewPoint returns a point without a value.
func NewPoint(x, y, z float64) Point {
	return Point{Position: r3.Vector{X: x, Y: y, Z: z}}
}

// NewValuePoint returns a point carrying a scalar value.
func NewValuePoint(x, y, z, value float64) Point {
	return Point{Position: r3.Vector{X: x, Y: y, Z: z}, Value: value, HasValue: true}
}

// ColoredPoint is an exported point with a display color.
type ColoredPoint struct {
	Position r3.Vector
	Color    color.NRGBA
}

// MetaData is data about a set of points.
type MetaData struct {
	HasValue bool
	Count    int

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns metadata of an empty set whose bounds merge correctly with the first
// point.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the metadata with the given point.
func (meta *MetaData) Merge(p Point) {
	meta.Count++
	if p.HasValue {
		meta.HasValue = true
	}

	v := p.Position
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}

	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}
}

// Min returns the lower corner of the bounding box.
func (meta MetaData) Min() r3.Vector {
	return r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}
}

// Max returns the upper corner of the bounding box.
func (meta MetaData) Max() r3.Vector {
	return r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ}
}

// Bounds computes the metadata of the given points.
func Bounds(points []Point) MetaData {
	meta := NewMetaData()
	for _, p := range points {
		meta.Merge(p)
	}
	return meta
}

// Positions returns the positions of the given points.
func Positions(points []Point) []r3.Vector {
	positions := make([]r3.Vector, 0, len(points))
	for _, p := range points {
		positions = append(positions, p.Position)
	}
	return positions
}
