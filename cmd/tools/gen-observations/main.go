// Command gen-observations writes reproducible synthetic observation days
// as CSV or XLSX for demos and for exercising airq end to end.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/config"
	"github.com/banshee-data/airquality.report/internal/fsutil"
	"github.com/banshee-data/airquality.report/internal/ingest"
	"github.com/banshee-data/airquality.report/internal/synth"
)

func main() {
	output := flag.String("o", "observations.csv", "output path (.csv or .xlsx)")
	sitePath := flag.String("site", "", "site config supplying sensors, timezone and pollutant column")
	pollutant := flag.String("pollutant", "", "pollutant name from the site config (default: the first listed)")
	start := flag.String("day", "2025-08-01", "first day, YYYY-MM-DD")
	days := flag.Int("days", 1, "number of consecutive days")
	seed := flag.Int64("seed", 1, "random seed")
	interval := flag.Duration("interval", 5*time.Minute, "reading interval per sensor")
	station := flag.String("wind-station", "", "only this sensor reports wind")
	flag.Parse()

	first, err := l1observations.ParseDay(*start)
	if err != nil {
		log.Fatalf("invalid -day: %v", err)
	}
	if *days < 1 {
		log.Fatal("-days must be at least 1")
	}

	sensors := synth.DefaultSensors
	column := "pm25"
	speedUnits := ""
	loc := time.UTC
	if *sitePath != "" {
		site, err := config.LoadSiteConfig(*sitePath)
		if err != nil {
			log.Fatalf("failed to load site: %v", err)
		}
		if len(site.Sensors) > 0 {
			sensors = synth.SensorsFromSite(site)
		}
		name := *pollutant
		if name == "" {
			name = site.Pollutants[0].Name
		}
		pc, err := site.Pollutant(name)
		if err != nil {
			log.Fatal(err)
		}
		column = pc.Column
		speedUnits = site.SpeedUnits()
		if loc, err = site.Location(); err != nil {
			log.Fatal(err)
		}
	}

	gen := synth.NewGenerator(*seed, sensors)
	gen.Interval = *interval
	gen.WindStation = *station

	var obs []l1observations.Observation
	day := first.Start(time.UTC)
	for i := 0; i < *days; i++ {
		d := l1observations.DayOf(day.AddDate(0, 0, i), time.UTC)
		obs = append(obs, gen.Day(d, loc)...)
	}

	table := ingest.ObservationTable(obs, column, speedUnits, loc)
	if err := ingest.WriteTable(fsutil.OSFileSystem{}, *output, table); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
	log.Printf("✓ Created: %s (%d rows, %d sensors, %d day(s))", *output, len(obs), len(sensors), *days)
}
