/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/db"
)

const doctorPingTimeout = 5 * time.Second

// doctorKeys are the environment variables reported by the doctor command.
var doctorKeys = []string{
	"PORT",
	"STORE_DRIVER",
	"DATABASE_URL",
	"JWT_SECRET",
	"JWT_EXPIRES_IN",
	"LOG_LEVEL",
}

// doctorCmd checks configuration and database connectivity.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and database connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoctor(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(ctx context.Context, out io.Writer) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	fmt.Fprintln(out, "Environment:")
	for _, key := range doctorKeys {
		if os.Getenv(key) != "" {
			green.Fprint(out, "    ✔ ")
			fmt.Fprintf(out, "%s is set\n", key)
		} else {
			gray.Fprint(out, "    - ")
			fmt.Fprintf(out, "%s is not set\n", key)
		}
	}
	fmt.Fprintln(out)

	cfg, err := config.LoadConfig()
	if err != nil {
		red.Fprint(out, "    ✘ ")
		fmt.Fprintf(out, "config: %v\n", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		red.Fprint(out, "    ✘ ")
		fmt.Fprintf(out, "config: %v\n", err)
		return err
	}
	green.Fprint(out, "    ✔ ")
	fmt.Fprintf(out, "config valid (store=%s, token lifetime=%s)\n", cfg.Database.Driver, cfg.Auth.TokenLifetime.Duration())

	if cfg.Database.Driver != config.StoreDriverPostgres {
		return nil
	}

	fmt.Fprintf(out, "    database: %s\n", config.RedactDSN(cfg.Database.URL))
	ctx, cancel := context.WithTimeout(ctx, doctorPingTimeout)
	defer cancel()

	conn, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		red.Fprint(out, "    ✘ ")
		fmt.Fprintf(out, "database unreachable: %v\n", err)
		return err
	}
	defer conn.Close()

	green.Fprint(out, "    ✔ ")
	fmt.Fprintln(out, "database reachable")

	version, dirty, err := db.MigrationVersion(cfg.Database.URL)
	if err != nil {
		red.Fprint(out, "    ✘ ")
		fmt.Fprintf(out, "migration status: %v\n", err)
		return err
	}
	green.Fprint(out, "    ✔ ")
	fmt.Fprintf(out, "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
