// Standard attribute keys for imputation runs. Keys follow a hierarchical
// naming convention ("model.name", "data.samples") so that log pipelines can
// filter on a common prefix.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the component type, e.g. "Imputer", "MinMaxScaler".
	ModelNameKey = "model.name"

	// RunIDKey carries the UUID assigned to one training run.
	RunIDKey = "model.run_id"

	// OperationKey specifies the operation being performed: "fit", "transform", ...
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase: "training", "restore", "finalize".
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey   = "data.samples"
	FeaturesKey  = "data.features"
	BatchSizeKey = "data.batch_size"

	// MissingRateKey is the fraction of cells that are missing in the input.
	MissingRateKey = "data.missing_rate"

	// DataNameKey is the dataset name that also keys the model store.
	DataNameKey = "data.name"
)

// Training progress and losses.
const (
	IterationKey  = "training.iteration"
	IterationsKey = "training.iterations"
	DurationMsKey = "perf.duration_ms"

	DiscriminatorLossKey = "gain.d_loss"
	GeneratorLossKey     = "gain.g_loss"
	AdversarialLossKey   = "gain.g_adv_loss"
	MSELossKey           = "gain.mse_loss"

	// RMSEKey records the imputation RMSE over withheld cells.
	RMSEKey = "metrics.rmse"
	// MAEKey records the imputation MAE over the same cells.
	MAEKey = "metrics.mae"
)

// Hyperparameters and configuration.
const (
	LearningRateKey = "hyperparams.learning_rate"
	HintRateKey     = "hyperparams.hint_rate"
	AlphaKey        = "hyperparams.alpha"
	RandomSeedKey   = "config.random_seed"
)

// Persistence and error context.
const (
	StoreKey      = "store.key"
	StoreTypeKey  = "store.type"
	PathKey       = "io.path"
	ErrorTypeKey  = "error.type"
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationTransform = "transform"
	OperationImpute    = "impute"
	OperationSave      = "save"
	OperationLoad      = "load"

	PhaseTraining = "training"
	PhaseRestore  = "restore"
	PhaseFinalize = "finalize"
)
