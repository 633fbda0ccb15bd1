package metrics

import (
	"image/color"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kiw9761/GAIN/gain"
	"github.com/kiw9761/GAIN/pkg/errors"
)

// LossHistory records the losses of every completed iteration.
type LossHistory struct {
	mu         sync.Mutex
	iterations []int
	losses     []gain.Losses
	skipped    int
}

var _ gain.Observer = (*LossHistory)(nil)

// NewLossHistory returns an empty history.
func NewLossHistory() *LossHistory {
	return &LossHistory{}
}

// ObserveIteration implements gain.Observer.
func (h *LossHistory) ObserveIteration(it int, l gain.Losses) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.iterations = append(h.iterations, it)
	h.losses = append(h.losses, l)
}

// ObserveDegenerateBatch implements gain.Observer.
func (h *LossHistory) ObserveDegenerateBatch(int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skipped++
}

// Len is the number of recorded iterations.
func (h *LossHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.losses)
}

// Skipped is the number of degenerate batches seen.
func (h *LossHistory) Skipped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.skipped
}

// Last returns the losses of the latest recorded iteration.
func (h *LossHistory) Last() (gain.Losses, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.losses) == 0 {
		return gain.Losses{}, false
	}
	return h.losses[len(h.losses)-1], true
}

func (h *LossHistory) series(pick func(gain.Losses) float64) plotter.XYs {
	xys := make(plotter.XYs, len(h.losses))
	for k, l := range h.losses {
		xys[k].X = float64(h.iterations[k] + 1)
		xys[k].Y = pick(l)
	}
	return xys
}

// PlotLossHistory draws the discriminator, adversarial and reconstruction
// losses against the iteration number. The image format follows the file
// extension of path (.png, .svg, .pdf, ...).
func PlotLossHistory(h *LossHistory, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.losses) == 0 {
		return errors.NewValueError("PlotLossHistory", "no iterations recorded")
	}

	p := plot.New()
	p.Title.Text = "GAIN training losses"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())

	curves := []struct {
		name  string
		color color.RGBA
		pick  func(gain.Losses) float64
	}{
		{"discriminator", color.RGBA{R: 200, G: 30, B: 30, A: 255}, func(l gain.Losses) float64 { return l.D }},
		{"generator (adversarial)", color.RGBA{R: 20, G: 80, B: 200, A: 255}, func(l gain.Losses) float64 { return l.GAdv }},
		{"reconstruction MSE", color.RGBA{R: 40, G: 120, B: 40, A: 255}, func(l gain.Losses) float64 { return l.MSE }},
	}
	for _, c := range curves {
		line, err := plotter.NewLine(h.series(c.pick))
		if err != nil {
			return errors.Wrapf(err, "failed to build %s curve", c.name)
		}
		line.Color = c.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(c.name, line)
	}
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save loss plot to %s", path)
	}
	return nil
}
