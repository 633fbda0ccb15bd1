package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiw9761/GAIN/pkg/log"
	"github.com/kiw9761/GAIN/store"
)

func newCheckpointCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect stored models",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Print the summary of the checkpoint stored under --data-name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			st, err := store.New(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			if c, ok := st.(io.Closer); ok {
				defer c.Close()
			}

			cp, err := st.Load(cmd.Context(), cfg.DataName)
			if err != nil {
				return err
			}
			log.GetLoggerWithName("cli").Debug("Checkpoint loaded",
				log.DataNameKey, cfg.DataName, log.StoreTypeKey, cfg.Store.Type)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cp.Summary())
			names := make([]string, 0, len(cp.Hyperparameters))
			for name := range cp.Hyperparameters {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %s=%g\n", name, cp.Hyperparameters[name])
			}
			return nil
		},
	})
	return cmd
}
