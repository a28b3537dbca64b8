package main

import (
	"fmt"
	"os"

	"paydesk_backend/internal/app"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "paydesk",
		Short:   "Paydesk - mobile-money collection and withdrawal backend",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(app.Options{})
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(app.Options{Migrate: migrate})
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply the schema before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and the ledger procedure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate()
		},
	}
}
