package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/airquality.report/internal/db"
)

type runsConfig struct {
	Site      string
	DBPath    string
	Pollutant string
}

func parseRunsFlags(args []string, getenv func(string) string) (*runsConfig, error) {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	lc := &runsConfig{}
	fs.StringVar(&lc.Site, "site", "", "Site name (required)")
	fs.StringVar(&lc.DBPath, "db", envOr(getenv, envDB, defaultDBPath), "SQLite observation store")
	fs.StringVar(&lc.Pollutant, "pollutant", "", "Only runs for this pollutant")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if lc.Site == "" {
		return nil, fmt.Errorf("-site is required")
	}
	return lc, nil
}

// listRuns prints the recorded runs, newest first.
func listRuns(lc *runsConfig, out io.Writer) error {
	database, err := db.NewDB(lc.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	runs, err := database.ListRuns(lc.Site, lc.Pollutant)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tPOLLUTANT\tDAY\tFRAMES\tSENSORS\tREJECTED\tFALLBACKS\tDROPPED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.RunID, r.CreatedAt.Format(time.RFC3339), r.Pollutant, r.Day,
			r.Frames, r.Sensors, r.ObservationsRejected, r.FieldFallbacks, strings.Join(r.DroppedSensors, ","))
	}
	return tw.Flush()
}
