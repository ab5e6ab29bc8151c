// Package cli contains the lidaranalysis command line application.
package cli

import (
	"fmt"
	"io"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/config"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagMode   = "mode"
	flagPCD    = "binary-pcd"
	flagLZF    = "compressed-pcd"
)

// analysis holds what the Before hook prepared for the actions.
type analysis struct {
	logger golog.Logger
	cfg    *config.Config
}

// NewApp returns the lidaranalysis application writing its reports to out.
func NewApp(out io.Writer) *cli.App {
	a := &analysis{}
	return &cli.App{
		Name:            "lidaranalysis",
		Usage:           "detect buildings and surfaces in LiDAR point clouds",
		HideHelpCommand: true,
		Writer:          out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			{
				Name:      "buildings",
				Usage:     "detect buildings and optionally export their voxels as colored LAS",
				ArgsUsage: "[input] [output.las]",
				Action:    a.BuildingsAction,
			},
			{
				Name:      "surfaces",
				Usage:     "detect connected planar surfaces and optionally export them as colored LAS",
				ArgsUsage: "[input] [output.las]",
				Action:    a.SurfacesAction,
			},
			{
				Name:      "elevation",
				Usage:     "render an elevation image as BMP",
				ArgsUsage: "[input] <output.bmp>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagMode,
						Usage: "statistic to render: min, max or density",
					},
				},
				Action: a.ElevationAction,
			},
			{
				Name:      "convert",
				Usage:     "convert a point cloud to PCD",
				ArgsUsage: "<input> <output.pcd>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagPCD,
						Usage: "write binary instead of ascii PCD",
					},
					&cli.BoolFlag{
						Name:  flagLZF,
						Usage: "write lzf compressed binary PCD",
					},
				},
				Action: a.ConvertAction,
			},
			{
				Name:      "stats",
				Usage:     "print statistics about a point cloud",
				ArgsUsage: "[input]",
				Action:    a.StatsAction,
			},
		},
	}
}

func (a *analysis) before(c *cli.Context) error {
	if c.Bool(flagDebug) {
		a.logger = golog.NewDebugLogger("lidaranalysis")
	} else {
		a.logger = golog.NewLogger("lidaranalysis")
	}

	if fn := c.String(flagConfig); fn != "" {
		cfg, err := config.Read(fn, a.logger)
		if err != nil {
			return err
		}
		a.cfg = cfg
		return nil
	}
	cfg := config.Default()
	a.cfg = &cfg
	return nil
}

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
