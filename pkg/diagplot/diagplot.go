package diagplot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/next-exp/acreco_go/pkg/waveform"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PNGPlotter renders a pulse with its extracted markers to <name>.png.
type PNGPlotter struct {
	Width  vg.Length
	Height vg.Length
}

func New() *PNGPlotter {
	return &PNGPlotter{Width: 10 * vg.Inch, Height: 6 * vg.Inch}
}

type marker struct {
	label string
	t     float64
	level float64
}

// markers lists the crossings that were found, at the amplitude they refer to.
func markers(f waveform.Features, cfg waveform.Config) []marker {
	ped := f.PedStart
	all := []marker{
		{"t1", f.T1, ped + cfg.Threshold},
		{"t1_10", f.T1At10, ped + 0.1*f.Amp},
		{"t1_50", f.T1At50, ped + 0.5*f.Amp},
		{"t1_90", f.T1At90, ped + 0.9*f.Amp},
		{"t2", f.T2, ped + cfg.Threshold},
		{"t2_10", f.T2At10, ped + 0.1*f.Amp},
		{"t2_50", f.T2At50, ped + 0.5*f.Amp},
		{"t2_90", f.T2At90, ped + 0.9*f.Amp},
	}
	found := make([]marker, 0, len(all))
	for _, m := range all {
		if m.t == waveform.NotFoundTime {
			continue
		}
		found = append(found, m)
	}
	return found
}

func verticalLine(x float64, yMin float64, yMax float64, c color.Color) (*plotter.Line, error) {
	line, err := plotter.NewLine(plotter.XYs{{X: x, Y: yMin}, {X: x, Y: yMax}})
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	return line, nil
}

func (pp *PNGPlotter) PlotPulse(name string, pulse waveform.Pulse, f waveform.Features, cfg waveform.Config) error {
	if pulse.Len() == 0 {
		return fmt.Errorf("plot %s: empty pulse", name)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", filepath.Base(name), f.Valid)
	p.X.Label.Text = "Time (ns)"
	p.Y.Label.Text = "Amplitude (mV)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, pulse.Len())
	yMin, yMax := pulse.Amplitude[0], pulse.Amplitude[0]
	for i := range pts {
		pts[i].X = pulse.Time[i]
		pts[i].Y = pulse.Amplitude[i]
		yMin = min(yMin, pulse.Amplitude[i])
		yMax = max(yMax, pulse.Amplitude[i])
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to create waveform line: %w", err)
	}
	line.Color = color.RGBA{B: 255, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("waveform", line)

	gray := color.Gray{Y: 128}
	for _, x := range []float64{cfg.WindowLo, cfg.WindowHi} {
		edge, err := verticalLine(x, yMin, yMax, gray)
		if err != nil {
			return fmt.Errorf("failed to create window line: %w", err)
		}
		p.Add(edge)
	}

	ped, err := plotter.NewLine(plotter.XYs{{X: pts[0].X, Y: f.PedStart}, {X: pts[len(pts)-1].X, Y: f.PedStart}})
	if err != nil {
		return fmt.Errorf("failed to create pedestal line: %w", err)
	}
	ped.Color = gray
	p.Add(ped)
	p.Legend.Add("pedestal", ped)

	if f.HasWaveform() && !f.Valid.Has(waveform.RangeError) {
		peak, err := plotter.NewScatter(plotter.XYs{{X: f.TAmp, Y: f.PedStart + f.Amp}})
		if err != nil {
			return fmt.Errorf("failed to create peak marker: %w", err)
		}
		peak.Shape = draw.TriangleGlyph{}
		peak.Color = color.RGBA{R: 255, A: 255}
		p.Add(peak)
		p.Legend.Add("peak", peak)

		crossings := markers(f, cfg)
		if len(crossings) > 0 {
			xys := make(plotter.XYs, len(crossings))
			for i, m := range crossings {
				xys[i] = plotter.XY{X: m.t, Y: m.level}
			}
			scatter, err := plotter.NewScatter(xys)
			if err != nil {
				return fmt.Errorf("failed to create crossing markers: %w", err)
			}
			scatter.Shape = draw.CircleGlyph{}
			scatter.Color = color.RGBA{G: 160, A: 255}
			p.Add(scatter)
			p.Legend.Add("crossings", scatter)
		}
	}

	filename := name + ".png"
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create plot directory: %w", err)
		}
	}
	if err := p.Save(pp.Width, pp.Height, filename); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", filename, err)
	}
	return nil
}
