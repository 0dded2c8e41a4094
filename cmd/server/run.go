package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/govsync/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run <operation>",
	Short: "Run one scheduled operation once and exit",
	Args:  cobra.ExactArgs(1),
	FParseErrWhitelist: cobra.FParseErrWhitelist{
		UnknownFlags: true,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		return app.RunOperation(cmd.Context(), args[0])
	},
}

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the operations accepted by run",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range server.Operations() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(operationsCmd)
}
