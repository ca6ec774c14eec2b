package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:          "narrator",
		Short:        "News listing and AI narration service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config and .)")

	root.AddCommand(serveCMD(&cfgPath), narrateCMD(&cfgPath), refreshCMD(&cfgPath), cleanupCMD(&cfgPath))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
