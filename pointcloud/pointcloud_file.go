package pointcloud

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/edaniels/lidario"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// NewFromFile returns the points read in from the given file. The format is chosen by the
// file extension.
func NewFromFile(fn string, logger golog.Logger) ([]Point, error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".las":
		return NewFromLASFile(fn, logger)
	case ".pcd":
		return NewFromPCDFile(fn, logger)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// NewFromLASFile returns the points of a LAS file. The intensity of every point becomes its
// value. If any lossiness of points could occur from reading it in, it's reported but is not
// an error.
func NewFromLASFile(fn string, logger golog.Logger) ([]Point, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open LAS file %q", fn)
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	points := make([]Point, 0, lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read LAS point %d", i)
		}
		data := p.PointData()

		x, y, z := data.X, data.Y, data.Z
		if x < minPreciseFloat64 || x > maxPreciseFloat64 ||
			y < minPreciseFloat64 || y > maxPreciseFloat64 ||
			z < minPreciseFloat64 || z > maxPreciseFloat64 {
			logger.Warnw("potential floating point lossiness for LAS point",
				"point", data, "range", fmt.Sprintf("[%f,%f]", minPreciseFloat64, maxPreciseFloat64))
		}
		points = append(points, NewValuePoint(x, y, z, float64(data.Intensity)))
	}
	logger.Debugw("read LAS file", "file", fn, "points", len(points))
	return points, nil
}

// NewFromPCDFile returns the points of an ascii or binary PCD file.
func NewFromPCDFile(fn string, logger golog.Logger) ([]Point, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	points, err := ReadPCD(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read PCD file %q", fn)
	}
	logger.Debugw("read PCD file", "file", fn, "points", len(points))
	return points, nil
}

// WriteColoredLAS writes the points out to a LAS file with point format 2 so that the
// colors survive.
func WriteColoredLAS(fn string, points []ColoredPoint) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: 2,
	}); err != nil {
		return
	}

	for _, p := range points {
		pr0 := &lidario.PointRecord0{
			X: p.Position.X,
			Y: p.Position.Y,
			Z: p.Position.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			PointSourceID: 1,
		}
		lp := &lidario.PointRecord2{
			PointRecord0: pr0,
			RGB: &lidario.RgbData{
				Red:   uint16(p.Color.R) * 256,
				Green: uint16(p.Color.G) * 256,
				Blue:  uint16(p.Color.B) * 256,
			},
		}
		if err = lf.AddLasPoint(lp); err != nil {
			return
		}
	}
	return
}
