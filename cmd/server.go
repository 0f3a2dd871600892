/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/userfolio/webapp/config"
	"github.com/userfolio/webapp/internal/logging"
	"github.com/userfolio/webapp/internal/server"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the userfolio web server",
	Long: `Starts the userfolio web server. Usage:

	userfolio server
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		logger, err := logging.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		srv, err := server.New(cmd.Context(), cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
