package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/da-bao-jian/aa-bundler/node"
)

var (
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run mempool node",
		Long: `Open the mempool database and serve it until interrupted.

Use --config=path-to-your-config-file. default is=./config/bundler.yaml `,
		Run: func(cmd *cobra.Command, args []string) {
			if err := node.RunWithConfig(config); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
}
