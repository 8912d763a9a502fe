// Command airq runs the air quality frame analysis over a site's
// observations and manages the observation store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/banshee-data/airquality.report/internal/db"
	"github.com/banshee-data/airquality.report/internal/version"
)

// Environment variables that supply flag defaults. A .env file in the
// working directory is loaded first when present.
const (
	envDB     = "AIRQ_DB"
	envSite   = "AIRQ_SITE"
	envConfig = "AIRQ_CONFIG"
)

const defaultDBPath = "airq.db"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("ignoring .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := dispatch(ctx, os.Args[1:], os.Getenv, os.Stdout)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("airq: %v", err)
	}
}

// dispatch picks the subcommand. Arguments that do not start with a known
// command run the analysis.
func dispatch(ctx context.Context, args []string, getenv func(string) string, out io.Writer) error {
	if len(args) == 0 && getenv(envSite) == "" {
		printUsage(out)
		return nil
	}

	command := "run"
	if len(args) > 0 {
		switch args[0] {
		case "run", "import", "runs", "serve", "migrate", "version", "help":
			command, args = args[0], args[1:]
		}
	}

	switch command {
	case "run":
		rc, err := parseRunFlags(args, getenv)
		if err != nil {
			return err
		}
		if rc.ShowVersion {
			fmt.Fprintln(out, version.String("airq"))
			return nil
		}
		return runAnalysis(ctx, rc)
	case "import":
		ic, err := parseImportFlags(args, getenv)
		if err != nil {
			return err
		}
		return runImport(ic)
	case "runs":
		lc, err := parseRunsFlags(args, getenv)
		if err != nil {
			return err
		}
		return listRuns(lc, out)
	case "serve":
		sc, err := parseServeFlags(args, getenv)
		if err != nil {
			return err
		}
		return serve(ctx, sc)
	case "migrate":
		dbPath, rest, err := parseMigrateFlags(args, getenv)
		if err != nil {
			return err
		}
		return db.RunMigrateCommand(rest, dbPath, out)
	case "version":
		fmt.Fprintln(out, version.String("airq"))
		return nil
	default:
		printUsage(out)
		return nil
	}
}

// parseMigrateFlags reads -db ahead of the migrate action.
func parseMigrateFlags(args []string, getenv func(string) string) (string, []string, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", envOr(getenv, envDB, defaultDBPath), "SQLite observation store")
	if err := fs.Parse(args); err != nil {
		return "", nil, err
	}
	return *dbPath, fs.Args(), nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `airq - wind and pollution frame analysis

Usage: airq [command] [options]

Commands:
  run        Analyse observations into per-day frames (default)
  import     Load a CSV or XLSX file into the observation store
  runs       List recorded analysis runs for a site
  serve      Serve processed days and runs over HTTP
  migrate    Manage the observation store schema
  version    Show the airq version
  help       Show this help message

Run 'airq <command> -h' for the options of a command.

Environment:
  AIRQ_DB      default -db
  AIRQ_SITE    default -site
  AIRQ_CONFIG  default -config

Examples:
  airq -site config/site.example.yaml -input harbor.csv -out out -plots
  airq import -site config/site.example.yaml -input harbor.xlsx
  airq -site config/site.example.yaml -days 2025-08-01,2025-08-02
  airq serve -out out -listen :8080
  airq migrate status
`)
}
