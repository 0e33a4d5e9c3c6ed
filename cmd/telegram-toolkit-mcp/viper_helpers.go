package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagOrViperString prefers an explicitly set flag, then the viper key, then
// the flag default.
func flagOrViperString(cmd *cobra.Command, flagName, viperKey string) string {
	v, _ := cmd.Flags().GetString(flagName)
	if cmd.Flags().Changed(flagName) {
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetString(viperKey)
	}
	return v
}
