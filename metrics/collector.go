package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kiw9761/GAIN/gain"
	"github.com/kiw9761/GAIN/pkg/errors"
)

const namespace = "gain"

// TrainingCollector exports training progress as Prometheus metrics. It
// implements gain.Observer and owns its registry, so a batch job can dump
// the final values with WriteTextfile.
type TrainingCollector struct {
	registry *prometheus.Registry

	iterations    prometheus.Counter
	degenerate    prometheus.Counter
	dLoss         prometheus.Gauge
	gLoss         prometheus.Gauge
	reconstructed prometheus.Gauge
}

var _ gain.Observer = (*TrainingCollector)(nil)

// NewTrainingCollector creates a collector whose series carry a data_name
// label.
func NewTrainingCollector(dataName string) (*TrainingCollector, error) {
	labels := prometheus.Labels{"data_name": dataName}
	c := &TrainingCollector{
		registry: prometheus.NewRegistry(),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "training_iterations_total",
			Help:        "Training iterations that updated both networks.",
			ConstLabels: labels,
		}),
		degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "degenerate_batches_total",
			Help:        "Minibatches skipped because they had no observed cells.",
			ConstLabels: labels,
		}),
		dLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "discriminator_loss",
			Help:        "Discriminator cross-entropy of the latest iteration.",
			ConstLabels: labels,
		}),
		gLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "generator_loss",
			Help:        "Total generator loss of the latest iteration.",
			ConstLabels: labels,
		}),
		reconstructed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "reconstruction_loss",
			Help:        "Reconstruction MSE over observed cells of the latest iteration.",
			ConstLabels: labels,
		}),
	}

	for _, m := range []prometheus.Collector{c.iterations, c.degenerate, c.dLoss, c.gLoss, c.reconstructed} {
		if err := c.registry.Register(m); err != nil {
			return nil, errors.Wrap(err, "failed to register training metric")
		}
	}
	return c, nil
}

// ObserveIteration implements gain.Observer.
func (c *TrainingCollector) ObserveIteration(_ int, l gain.Losses) {
	c.iterations.Inc()
	c.dLoss.Set(l.D)
	c.gLoss.Set(l.G)
	c.reconstructed.Set(l.MSE)
}

// ObserveDegenerateBatch implements gain.Observer.
func (c *TrainingCollector) ObserveDegenerateBatch(int) {
	c.degenerate.Inc()
}

// Registry returns the registry holding the training metrics.
func (c *TrainingCollector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the current values in the text exposition format,
// atomically, for the node exporter textfile collector.
func (c *TrainingCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
