// Package plot renders convergence curves from an optimizer's per-iteration
// best-score history.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default image size.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// Options control the look of a convergence plot.
type Options struct {
	Title string
	// LogY draws the score axis on a log scale. Every score must be positive.
	LogY bool
}

// Convergence builds a plot of iteration number against global best score.
// Iterations are numbered from 1.
func Convergence(history []float64, opts Options) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, errors.New("history is empty")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = "Convergence curve"
	}
	p.X.Label.Text = "Iteration number"
	p.Y.Label.Text = "Global optimal value"

	pts := make(plotter.XYs, len(history))
	for i, score := range history {
		if opts.LogY && !(score > 0) {
			return nil, fmt.Errorf("log scale needs positive scores, got %g at iteration %d", score, i+1)
		}
		pts[i].X = float64(i + 1)
		pts[i].Y = score
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build line: %w", err)
	}
	line.Width = vg.Points(2)
	line.Color = color.RGBA{B: 255, A: 255}
	p.Add(line)

	if opts.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
	}

	return p, nil
}

// Save renders history to path. The format follows the file extension; a
// path without one gets PNG.
func Save(history []float64, opts Options, path string) error {
	format := FormatFromPath(path)
	if err := CheckFormat(format); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	if err := Write(f, history, opts, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close plot file: %w", err)
	}
	return nil
}

// Write renders history in the given format ("png", "svg", ...) to w.
func Write(w io.Writer, history []float64, opts Options, format string) error {
	p, err := Convergence(history, opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, format)
	if err != nil {
		return fmt.Errorf("failed to create %s writer: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// formats are the image formats gonum/plot can encode.
var formats = []string{"eps", "jpg", "jpeg", "pdf", "png", "svg", "tex", "tif", "tiff"}

// CheckFormat reports whether format can be rendered.
func CheckFormat(format string) error {
	if !slices.Contains(formats, format) {
		return fmt.Errorf("unsupported plot format %q (supported: %s)", format, strings.Join(formats, ", "))
	}
	return nil
}

// FormatFromPath returns the image format implied by a file name.
func FormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "png"
	}
	return ext
}
