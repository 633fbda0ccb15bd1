package gain

// Losses are the values of the training objectives for one iteration.
type Losses struct {
	D    float64 // discriminator cross-entropy
	GAdv float64 // generator adversarial term
	MSE  float64 // reconstruction error over observed cells
	G    float64 // GAdv + alpha*MSE
}

// Observer receives training progress. Calls happen on the training
// goroutine, between iterations.
type Observer interface {
	// ObserveIteration is called after each iteration that updated both networks.
	ObserveIteration(iteration int, losses Losses)

	// ObserveDegenerateBatch is called for iterations skipped because the
	// batch had no observed cell.
	ObserveDegenerateBatch(iteration int)
}
