package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiw9761/GAIN/pkg/log"
)

func newRootCmd() *cobra.Command {
	v := newViper()
	var (
		cfgFile   string
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:           "gain",
		Short:         "Impute missing values in tabular data with GAIN",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := log.Setup(logLevel, logFormat, cmd.ErrOrStderr()); err != nil {
				return err
			}
			return readConfigFile(v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logging level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "pretty", "logging format: pretty or json")

	root.PersistentFlags().String("data-name", defaultDataName, "dataset name; also the checkpoint key")
	root.PersistentFlags().String("store", "file", "checkpoint store: file, redis or s3")
	root.PersistentFlags().String("model-dir", "model", "checkpoint directory of the file store")
	bindFlags(v, root, map[string]string{
		"data_name":  "data-name",
		"store.type": "store",
		"store.dir":  "model-dir",
	}, true)

	root.AddCommand(newImputeCmd(v))
	root.AddCommand(newCheckpointCmd(v))
	return root
}

// bindFlags ties viper keys to flags so an explicitly set flag wins over
// the config file and the environment.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(name)))
	}
}
