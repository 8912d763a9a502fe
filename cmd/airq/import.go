package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/banshee-data/airquality.report/internal/config"
	"github.com/banshee-data/airquality.report/internal/db"
	"github.com/banshee-data/airquality.report/internal/fsutil"
	"github.com/banshee-data/airquality.report/internal/ingest"
)

type importConfig struct {
	SitePath  string
	DBPath    string
	Input     string
	Pollutant string
	Sheet     string
}

func parseImportFlags(args []string, getenv func(string) string) (*importConfig, error) {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	ic := &importConfig{}
	fs.StringVar(&ic.SitePath, "site", getenv(envSite), "Site configuration file (.yaml, .yml or .json)")
	fs.StringVar(&ic.DBPath, "db", envOr(getenv, envDB, defaultDBPath), "SQLite observation store")
	fs.StringVar(&ic.Input, "input", "", "CSV or XLSX observation file (required)")
	fs.StringVar(&ic.Pollutant, "pollutant", "", "Import only this pollutant (default: every site pollutant present in the file)")
	fs.StringVar(&ic.Sheet, "sheet", "", "XLSX worksheet (default: the first)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if ic.SitePath == "" {
		return nil, fmt.Errorf("-site is required (or set %s)", envSite)
	}
	if ic.Input == "" {
		return nil, fmt.Errorf("-input is required")
	}
	return ic, nil
}

// runImport stores every requested pollutant column of the input file.
// With no -pollutant, columns absent from the file are skipped.
func runImport(ic *importConfig) error {
	site, err := config.LoadSiteConfig(ic.SitePath)
	if err != nil {
		return err
	}
	database, err := db.NewDB(ic.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	pollutants := []string{ic.Pollutant}
	if ic.Pollutant == "" {
		pollutants = pollutants[:0]
		for _, p := range site.Pollutants {
			pollutants = append(pollutants, p.Name)
		}
	}

	table, err := ingest.ReadTable(fsutil.OSFileSystem{}, ic.Input, ic.Sheet)
	if err != nil {
		return err
	}

	imported := 0
	for _, name := range pollutants {
		opts, err := ingest.OptionsFor(site, name)
		if err != nil {
			return err
		}
		obs, st, err := ingest.Observations(table, opts)
		if errors.Is(err, ingest.ErrMissingColumn) && ic.Pollutant == "" {
			log.Printf("%s: skipping pollutant %s: %v", ic.Input, name, err)
			continue
		}
		if err != nil {
			return err
		}
		site.FillCoordinates(obs)

		stored, skipped, err := database.InsertObservations(site.Name, name, obs)
		if err != nil {
			return err
		}
		log.Printf("%s: pollutant %s stored=%d skipped=%d bad_timestamps=%d", ic.Input, name, stored, skipped, st.BadTimestamps)
		imported++
	}
	if imported == 0 {
		return fmt.Errorf("%s contains none of the site's pollutant columns", ic.Input)
	}
	return nil
}
