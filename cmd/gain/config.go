package main

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/kiw9761/GAIN/gain"
	"github.com/kiw9761/GAIN/pkg/errors"
	"github.com/kiw9761/GAIN/store"
)

const envPrefix = "GAIN"

// appConfig is the merged result of defaults, config file, GAIN_*
// environment variables and flags, in increasing priority.
type appConfig struct {
	gain.Config `mapstructure:",squash"`

	DataDir     string  `mapstructure:"data_dir"`
	OutputDir   string  `mapstructure:"output_dir"`
	MissRate    float64 `mapstructure:"miss_rate"`
	MetricsFile string  `mapstructure:"metrics_file"`
	LossPlot    string  `mapstructure:"loss_plot"`

	Store store.Config `mapstructure:"store"`
}

const defaultDataName = "new_data_051"

func defaultAppConfig() appConfig {
	cfg := appConfig{
		Config:    gain.DefaultConfig(),
		DataDir:   "data",
		OutputDir: "data_imputed",
		MissRate:  0.2,
		Store:     store.DefaultConfig(),
	}
	cfg.DataName = defaultDataName
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := defaultAppConfig()
	v.SetDefault("data_name", d.DataName)
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("hint_rate", d.HintRate)
	v.SetDefault("alpha", d.Alpha)
	v.SetDefault("iterations", d.Iterations)
	v.SetDefault("onehot", d.OneHot)
	v.SetDefault("predict", d.Predict)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("learning_rate", d.LearningRate)
	v.SetDefault("log_interval", d.LogInterval)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("miss_rate", d.MissRate)
	v.SetDefault("metrics_file", d.MetricsFile)
	v.SetDefault("loss_plot", d.LossPlot)
	v.SetDefault("store.type", d.Store.Type)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", d.Store.RedisPassword)
	v.SetDefault("store.redis_db", d.Store.RedisDB)
	v.SetDefault("store.ttl", d.Store.TTL)
	v.SetDefault("store.bucket", d.Store.Bucket)
	v.SetDefault("store.region", d.Store.Region)
	v.SetDefault("store.endpoint", d.Store.Endpoint)
	v.SetDefault("store.force_path_style", d.Store.ForcePathStyle)
	v.SetDefault("store.prefix", d.Store.Prefix)
	return v
}

// readConfigFile merges path into v; an empty path is a no-op.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	return nil
}

func loadConfig(v *viper.Viper) (appConfig, error) {
	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to decode configuration")
	}
	if cfg.DataName == "" {
		return cfg, errors.NewValidationError("data_name", "must not be empty", cfg.DataName)
	}
	if cfg.MissRate < 0 || cfg.MissRate >= 1 {
		return cfg, errors.NewValidationError("miss_rate", "must be in [0, 1)", cfg.MissRate)
	}
	if err := cfg.Config.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
