package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var (
	config  = "./config/bundler.yaml"
	rootCmd = &cobra.Command{
		Use:   "aa-bundler",
		Short: "ERC-4337 bundler mempool node",
		Long: `Run and inspect the durable user operation mempool.

Such as "aa-bundler run" to host the pool, or "aa-bundler version"
`,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&config, "config", "c", "config/bundler.yaml", "Path to config file")
}
