package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "sharebox",
		Short:   "sharebox - ephemeral file sharing",
		Long:    "sharebox hands out short links to groups of files that expire after a chosen duration.",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		RunE:    runServe,
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server and the expiry sweeper",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Delete expired shares once and exit",
			RunE:  runSweep,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
