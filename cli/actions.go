package cli

import (
	"os"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/building"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/octree"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/pca"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/pointcloud"
	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/quadtree"
)

const (
	maxHistogramBins = 10
	histogramWidth   = 40
)

// inputPaths returns the input file and the optional output file of a command. The input
// falls back to the configured one when only the output is given.
func (a *analysis) inputPaths(c *cli.Context, outputRequired bool) (string, string, error) {
	args := c.Args().Slice()
	var input, output string
	switch len(args) {
	case 0:
		input = a.cfg.Input
	case 1:
		if outputRequired {
			input, output = a.cfg.Input, args[0]
		} else {
			input = args[0]
		}
	default:
		input, output = args[0], args[1]
	}
	if input == "" {
		return "", "", errors.New("no input file given")
	}
	if outputRequired && output == "" {
		return "", "", errors.New("no output file given")
	}
	return input, output, nil
}

func (a *analysis) readPoints(fn string) ([]pointcloud.Point, error) {
	points, err := pointcloud.NewFromFile(fn, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Infow("read points", "file", fn, "points", len(points))
	return points, nil
}

// BuildingsAction is the corresponding Action for 'buildings'.
func (a *analysis) BuildingsAction(c *cli.Context) error {
	input, output, err := a.inputPaths(c, false)
	if err != nil {
		return err
	}
	points, err := a.readPoints(input)
	if err != nil {
		return err
	}
	result, err := building.Detect(points, a.cfg.Building, a.logger)
	if err != nil {
		return err
	}

	buildings := result.Buildings()
	printf(c.App.Writer, "%d buildings (%d groups, %d of %d points above ground)",
		len(buildings), len(result.Groups), result.Kept, len(points))
	for i, b := range buildings {
		printf(c.App.Writer, "\t%d: %d voxels, %d points, min %v, max %v", i, b.Voxels, b.Points, b.Min, b.Max)
	}
	summary, err := result.Summary()
	if err != nil {
		return err
	}
	if summary.Buildings > 0 {
		printf(c.App.Writer, "voxels per building: mean %.1f, median %.1f, p90 %.1f, max %.0f",
			summary.MeanVoxels, summary.MedianVoxels, summary.P90Voxels, summary.MaxVoxels)
	}

	if output == "" {
		return nil
	}
	return pointcloud.WriteColoredLAS(output, result.ColoredVoxels())
}

// SurfacesAction is the corresponding Action for 'surfaces'.
func (a *analysis) SurfacesAction(c *cli.Context) error {
	input, output, err := a.inputPaths(c, false)
	if err != nil {
		return err
	}
	points, err := a.readPoints(input)
	if err != nil {
		return err
	}
	result, err := pca.DetectSurfaces(points, a.cfg.Surface.DetailLevel, a.cfg.Surface.MaxQuotient, a.logger)
	if err != nil {
		return err
	}

	printf(c.App.Writer, "%d surfaces (%d voxels, %d degenerate)",
		len(result.Surfaces), result.Analysis.Leaves, result.Analysis.Degenerate)
	for i, s := range result.Surfaces {
		printf(c.App.Writer, "\t%d: %d voxels, %d points, min %v, max %v", i, s.Voxels, s.Points, s.Min, s.Max)
	}

	if output == "" {
		return nil
	}
	return pointcloud.WriteColoredLAS(output, result.ColoredVoxels())
}

// ElevationAction is the corresponding Action for 'elevation'.
func (a *analysis) ElevationAction(c *cli.Context) (err error) {
	input, output, err := a.inputPaths(c, true)
	if err != nil {
		return err
	}
	if c.String(flagMode) != "" {
		a.cfg.Elevation.Mode = c.String(flagMode)
	}
	mode, err := a.cfg.Elevation.ImageMode()
	if err != nil {
		return err
	}
	points, err := a.readPoints(input)
	if err != nil {
		return err
	}
	quad, err := quadtree.FromPoints(points, a.cfg.Elevation.DetailLevel, a.logger)
	if err != nil {
		return err
	}
	img, err := quad.Image(mode)
	if err != nil {
		return err
	}

	//nolint:gosec
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := quadtree.WriteBMP(f, img); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %dx%d %s elevation image to %s", img.Bounds().Dx(), img.Bounds().Dy(), mode, output)
	return nil
}

// ConvertAction is the corresponding Action for 'convert'.
func (a *analysis) ConvertAction(c *cli.Context) (err error) {
	if c.Args().Len() != 2 {
		return errors.New("convert needs an input and an output file")
	}
	points, err := a.readPoints(c.Args().Get(0))
	if err != nil {
		return err
	}
	outputType := pointcloud.PCDAscii
	switch {
	case c.Bool(flagPCD) && c.Bool(flagLZF):
		return errors.Errorf("--%s and --%s are mutually exclusive", flagPCD, flagLZF)
	case c.Bool(flagPCD):
		outputType = pointcloud.PCDBinary
	case c.Bool(flagLZF):
		outputType = pointcloud.PCDCompressed
	}

	//nolint:gosec
	f, err := os.Create(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return pointcloud.WritePCD(points, f, outputType)
}

// StatsAction is the corresponding Action for 'stats'.
func (a *analysis) StatsAction(c *cli.Context) error {
	input, _, err := a.inputPaths(c, false)
	if err != nil {
		return err
	}
	points, err := a.readPoints(input)
	if err != nil {
		return err
	}
	meta := pointcloud.Bounds(points)
	printf(c.App.Writer, "%d points", meta.Count)
	if meta.Count == 0 {
		return nil
	}
	printf(c.App.Writer, "bounds %v to %v", meta.Min(), meta.Max())

	voxels, err := octree.FromPoints(points, a.cfg.Building.DetailLevel, a.logger)
	if err != nil {
		return err
	}
	groups := voxels.Group()
	printf(c.App.Writer, "%d voxels of half width %v in %d groups", voxels.Size(), voxels.DetailLevel(), groups)

	sizes := make(stats.Float64Data, 0, groups)
	for _, s := range voxels.GroupSizes() {
		sizes = append(sizes, float64(s))
	}
	median, err := sizes.Median()
	if err != nil {
		return err
	}
	largest, err := sizes.Max()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "voxels per group: median %.1f, max %.0f", median, largest)

	bins := groups
	if bins > maxHistogramBins {
		bins = maxHistogramBins
	}
	return histogram.Fprint(c.App.Writer, histogram.Hist(bins, sizes), histogram.Linear(histogramWidth))
}
