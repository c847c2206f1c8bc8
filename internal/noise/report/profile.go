// Package report renders diagnostics of a propagation run: PNG plots of a
// vertical profile with the paths crossing it, and HTML charts of receiver
// spectra.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/noisemap/internal/noise/path"
	"github.com/banshee-data/noisemap/internal/noise/scene"
)

var (
	groundColor   = color.RGBA{R: 120, G: 90, B: 50, A: 255}
	obstacleColor = color.RGBA{R: 60, G: 60, B: 60, A: 255}
)

// PlotProfile writes a PNG of the profile: the ground, the obstacle tops it
// crosses, the emitters and each path drawn in its unfolded plane.
func PlotProfile(pr *scene.Profile, paths []*path.PropagationPath, file string) error {
	if pr == nil || len(pr.Points) == 0 {
		return fmt.Errorf("empty profile")
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Profile %.1f m", pr.Length)
	p.X.Label.Text = "Distance from source (m)"
	p.Y.Label.Text = "Altitude (m)"

	ground := make(plotter.XYs, 0, len(pr.Points))
	for _, g := range pr.GroundProfile(0, pr.Length) {
		ground = append(ground, plotter.XY{X: g.X, Y: g.Y})
	}
	groundLine, err := plotter.NewLine(ground)
	if err != nil {
		return err
	}
	groundLine.Color = groundColor
	groundLine.Width = vg.Points(1.5)
	p.Add(groundLine)
	p.Legend.Add("ground", groundLine)

	var tops plotter.XYs
	for _, cp := range pr.WallCuts() {
		tops = append(tops, plotter.XY{X: cp.Abscissa, Y: cp.Top})
	}
	if len(tops) > 0 {
		walls, err := plotter.NewScatter(tops)
		if err != nil {
			return err
		}
		walls.Color = obstacleColor
		walls.Shape = draw.BoxGlyph{}
		p.Add(walls)
		p.Legend.Add("obstacle tops", walls)
	}

	emitters, err := plotter.NewScatter(plotter.XYs{
		{X: 0, Y: pr.Source.Z},
		{X: pr.Length, Y: pr.Receiver.Z},
	})
	if err != nil {
		return err
	}
	emitters.Shape = draw.CircleGlyph{}
	p.Add(emitters)
	p.Legend.Add("source / receiver", emitters)

	colors := generateColors(len(paths))
	for i, pp := range paths {
		pts := make(plotter.XYs, len(pp.Points))
		for j, pt := range pp.Points {
			pts[j] = plotter.XY{X: pt.Abscissa, Y: pt.Pos.Z}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%d %s", i, pp.Kind), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save profile plot: %w", err)
	}
	return nil
}

// generateColors creates a palette of distinct colors for path lines
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
