package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/airquality.report/internal/api"
	"github.com/banshee-data/airquality.report/internal/db"
	"github.com/banshee-data/airquality.report/internal/fsutil"
)

type serveConfig struct {
	OutDir string
	DBPath string
	Listen string
}

func parseServeFlags(args []string, getenv func(string) string) (serveConfig, error) {
	var sc serveConfig
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&sc.OutDir, "out", "out", "output directory written by airq run")
	fs.StringVar(&sc.DBPath, "db", getenv(envDB), "SQLite store for the runs endpoint (optional)")
	fs.StringVar(&sc.Listen, "listen", ":8080", "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return sc, err
	}
	if sc.Listen == "" {
		return sc, errors.New("-listen must not be empty")
	}
	return sc, nil
}

// newServeHandler builds the API handler over sc.OutDir. The returned close
// function releases the run store when one was opened.
func newServeHandler(sc serveConfig) (http.Handler, func() error, error) {
	var database *db.DB
	closeFn := func() error { return nil }
	if sc.DBPath != "" {
		var err error
		if database, err = db.NewDB(sc.DBPath); err != nil {
			return nil, nil, fmt.Errorf("failed to open run store: %w", err)
		}
		closeFn = database.Close
	}
	srv := api.NewServer(fsutil.OSFileSystem{}, sc.OutDir, database)
	return api.LoggingMiddleware(srv.ServeMux()), closeFn, nil
}

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, sc serveConfig) error {
	handler, closeDB, err := newServeHandler(sc)
	if err != nil {
		return err
	}
	defer closeDB()

	server := &http.Server{
		Addr:              sc.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("Serving %s on %s", sc.OutDir, sc.Listen)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}
