// Package testutils provides synthetic scans shared by the package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/pointcloud"
)

// SceneSize is the number of points in BuildingScene.
const SceneSize = 41*41 + 11*11 + 3

// BuildingScene returns a flat 41x41 terrain at elevation base, a flat 5x5 roof with 11x11
// points 10 above it starting at (10, 10), and a three point pole at (30, 30) reaching from
// base+4 to base+5.
func BuildingScene(base float64) []pointcloud.Point {
	points := make([]pointcloud.Point, 0, SceneSize)
	for x := 0; x <= 40; x++ {
		for y := 0; y <= 40; y++ {
			points = append(points, pointcloud.NewPoint(float64(x), float64(y), base))
		}
	}
	for i := 0; i <= 10; i++ {
		for j := 0; j <= 10; j++ {
			points = append(points, pointcloud.NewPoint(10+float64(i)/2, 10+float64(j)/2, base+10))
		}
	}
	for _, z := range []float64{4, 4.5, 5} {
		points = append(points, pointcloud.NewPoint(30, 30, base+z))
	}
	return points
}

// WritePCD writes points as an ascii PCD file named name inside dir and returns its path.
func WritePCD(t *testing.T, dir, name string, points []pointcloud.Point) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	f, err := os.Create(fn)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, f.Close(), test.ShouldBeNil)
	}()
	test.That(t, pointcloud.WritePCD(points, f, pointcloud.PCDAscii), test.ShouldBeNil)
	return fn
}
