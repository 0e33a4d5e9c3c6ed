package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DronPascal/telegram-toolkit-mcp/artifact"
	"github.com/DronPascal/telegram-toolkit-mcp/internal/logutil"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired NDJSON export artifacts and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			store, err := artifact.NewStore(artifact.Config{
				Dir:       viper.GetString("artifacts.dir"),
				TTL:       viper.GetDuration("artifacts.ttl"),
				ReadGrace: viper.GetDuration("artifacts.read_grace"),
			}, logger)
			if err != nil {
				return err
			}
			removed := store.Sweep()
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired artifacts\n", removed)
			return nil
		},
	}
}
